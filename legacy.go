package sshconfig

import (
	"slices"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
)

// legacyOptions re-enables algorithms that current OpenSSH releases disable
// by default but old network gear and appliances still require.
var legacyOptions = []struct {
	Key    string
	Values []string
}{
	{"HostKeyAlgorithms", []string{"ssh-rsa", "ssh-rsa-cert-v01@openssh.com", "ssh-dss"}},
	{"PubkeyAcceptedAlgorithms", []string{"ssh-rsa", "ssh-rsa-cert-v01@openssh.com"}},
	{"Ciphers", []string{"aes256-cbc", "aes128-cbc", "3des-cbc"}},
	{"MACs", []string{"hmac-sha1", "hmac-md5"}},
	{"KexAlgorithms", []string{"diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1"}},
}

// LegacyOptions returns the directives ApplyLegacyOptions adds, in the form
// they take on a host that does not set any of them yet.
func LegacyOptions() []Option {
	out := make([]Option, 0, len(legacyOptions))
	for _, lo := range legacyOptions {
		v := "+" + strings.Join(lo.Values, ",")
		out = append(out, Option{Key: lo.Key, Value: v, Values: []string{v}})
	}

	return out
}

// mergeLegacy prefixes an existing algorithm list with the legacy algorithms
// it is missing. A list already in append form ("+...") that has all of them
// is left alone, which makes applying the set twice a no-op. A list in
// prepend form ("^...") keeps its form. A removal list ("-...") can not be
// combined with additions in one directive and is replaced.
func mergeLegacy(existing string, legacy []string) (string, bool) {
	existing = strings.TrimSpace(existing)
	if strings.HasPrefix(existing, "-") {
		debug.V(1).Log("replacing removal list %q with the legacy set", existing)

		return "+" + strings.Join(legacy, ","), true
	}

	prefix := "+"
	list, appendForm := strings.CutPrefix(existing, "+")
	if l, found := strings.CutPrefix(existing, "^"); found {
		prefix, list, appendForm = "^", l, true
	}

	have := strings.Split(list, ",")
	trim(have)
	have = slices.DeleteFunc(have, func(s string) bool { return s == "" })

	missing := make([]string, 0, len(legacy))
	for _, l := range legacy {
		if !slices.Contains(have, l) {
			missing = append(missing, l)
		}
	}

	if appendForm && len(missing) == 0 {
		return existing, false
	}

	return prefix + strings.Join(slices.Concat(missing, have), ","), true
}

type legacyChange struct {
	opt   int // index of the option to rewrite, -1 to add
	key   string
	value string
}

// ApplyLegacyOptions adds the legacy algorithm set to host i. The changes are
// planned completely before any node is touched, so either all of them are
// applied or none. It returns the number of directives added or rewritten.
func (m *model) ApplyLegacyOptions(i int) (int, error) {
	h, d, err := m.host(i)
	if err != nil {
		return 0, err
	}

	plan := make([]legacyChange, 0, len(legacyOptions))
	for _, lo := range legacyOptions {
		j := h.index(lo.Key)
		if j < 0 {
			plan = append(plan, legacyChange{opt: -1, key: lo.Key, value: "+" + strings.Join(lo.Values, ",")})

			continue
		}

		merged, changed := mergeLegacy(h.Options[j].Value, lo.Values)
		if !changed {
			debug.V(2).Log("%s: %s already allows the legacy algorithms", h, lo.Key)

			continue
		}
		plan = append(plan, legacyChange{opt: j, key: lo.Key, value: merged})
	}

	if len(plan) == 0 {
		return 0, nil
	}

	// rewrites first, they don't move any lines
	for _, c := range plan {
		if c.opt >= 0 {
			m.setOptionAt(h, d, c.opt, c.value)
		}
	}
	for _, c := range plan {
		if c.opt < 0 {
			m.addOption(h, d, c.key, c.value)
		}
	}

	debug.Log("applied %d legacy options to %s", len(plan), h)

	return len(plan), nil
}
