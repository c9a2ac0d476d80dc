package sshconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLegacy(t *testing.T) {
	t.Parallel()

	legacy := []string{"ssh-rsa", "ssh-dss"}

	for _, tc := range []struct {
		in      string
		out     string
		changed bool
	}{
		{in: "aes128-ctr", out: "+ssh-rsa,ssh-dss,aes128-ctr", changed: true},
		{in: "+ssh-rsa", out: "+ssh-dss,ssh-rsa", changed: true},
		{in: "+ssh-dss,ssh-rsa", out: "+ssh-dss,ssh-rsa", changed: false},
		{in: "+ssh-rsa,ssh-dss,ssh-ed25519", out: "+ssh-rsa,ssh-dss,ssh-ed25519", changed: false},
		{in: "ssh-rsa,ssh-dss", out: "+ssh-rsa,ssh-dss", changed: true},
		{in: "+", out: "+ssh-rsa,ssh-dss", changed: true},
		{in: "^ssh-ed25519", out: "^ssh-rsa,ssh-dss,ssh-ed25519", changed: true},
		{in: "^ssh-dss,ssh-rsa", out: "^ssh-dss,ssh-rsa", changed: false},
		{in: "-ssh-dss", out: "+ssh-rsa,ssh-dss", changed: true},
		{in: "-ssh-ed25519,ssh-rsa", out: "+ssh-rsa,ssh-dss", changed: true},
	} {
		out, changed := mergeLegacy(tc.in, legacy)
		assert.Equal(t, tc.out, out, tc.in)
		assert.Equal(t, tc.changed, changed, tc.in)
	}
}

func TestLegacyOptions(t *testing.T) {
	t.Parallel()

	opts := LegacyOptions()
	require.Len(t, opts, 5)
	assert.Equal(t, "HostKeyAlgorithms", opts[0].Key)
	assert.Equal(t, "+ssh-rsa,ssh-rsa-cert-v01@openssh.com,ssh-dss", opts[0].Value)
	assert.Equal(t, "KexAlgorithms", opts[4].Key)
}

func TestApplyLegacyOptions(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Host old\n    Ciphers aes128-ctr\n# next\nHost new\n")
	ed := openEditor(t, root)

	n, err := ed.ApplyLegacyOptions(0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	want := `Host old
    Ciphers +aes256-cbc,aes128-cbc,3des-cbc,aes128-ctr
    HostKeyAlgorithms +ssh-rsa,ssh-rsa-cert-v01@openssh.com,ssh-dss
    PubkeyAcceptedAlgorithms +ssh-rsa,ssh-rsa-cert-v01@openssh.com
    MACs +hmac-sha1,hmac-md5
    KexAlgorithms +diffie-hellman-group14-sha1,diffie-hellman-group1-sha1
# next
Host new
`
	assert.Equal(t, want, mustBytes(t, ed, root))

	first, err := ed.Host(0)
	require.NoError(t, err)

	// applying it again changes nothing
	n, err = ed.ApplyLegacyOptions(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, want, mustBytes(t, ed, root))

	second, err := ed.Host(0)
	require.NoError(t, err)
	assert.Equal(t, first.Options, second.Options)

	// the following host moved down by the added lines
	h, err := ed.Host(1)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 7, End: 8}, h.Header)
}

func TestApplyLegacyOptionsNotDirtyWhenComplete(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	content := "Host old\n"
	for _, o := range LegacyOptions() {
		content += "    " + o.Key + " " + o.Value + "\n"
	}
	root := writeFile(t, filepath.Join(td, "config"), content)
	ed := openEditor(t, root)

	n, err := ed.ApplyLegacyOptions(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, ed.IsDirty())

	_, err = ed.ApplyLegacyOptions(3)
	require.ErrorIs(t, err, ErrHostNotFound)
}
