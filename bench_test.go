package sshconfig

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func benchConfig(b *testing.B) string {
	b.Helper()

	var sb strings.Builder
	sb.WriteString("Include conf.d/*.conf\n\n")
	for i := range 50 {
		sb.WriteString("Host bench" + strconv.Itoa(i) + "\n")
		sb.WriteString("    HostName bench" + strconv.Itoa(i) + ".example.com\n")
		sb.WriteString("    User bench\n\n")
	}

	td := b.TempDir()
	configPath := filepath.Join(td, "config")
	if err := os.WriteFile(configPath, []byte(sb.String()), 0o644); err != nil {
		b.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(td, "conf.d"), 0o755); err != nil {
		b.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(td, "conf.d", "extra.conf"), []byte("Host extra\n    Port 2222\n"), 0o644); err != nil {
		b.Fatal(err)
	}

	return configPath
}

func BenchmarkOpen(b *testing.B) {
	configPath := benchConfig(b)
	ed := New()

	for b.Loop() {
		if err := ed.Open(context.Background(), configPath); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSetOption(b *testing.B) {
	configPath := benchConfig(b)
	ed := New()
	if err := ed.Open(context.Background(), configPath); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	for i := range b.N {
		if err := ed.SetOption(i%50, "Port", strconv.Itoa(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBytes(b *testing.B) {
	configPath := benchConfig(b)
	ed := New()
	if err := ed.Open(context.Background(), configPath); err != nil {
		b.Fatal(err)
	}
	if err := ed.SetOption(10, "User", "edited"); err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		if _, err := ed.Bytes(configPath); err != nil {
			b.Fatal(err)
		}
	}
}
