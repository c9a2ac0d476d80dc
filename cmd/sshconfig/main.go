package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gopasspw/sshconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

var errUsage = errors.New("usage error")

type options struct {
	file   string
	to     string
	yaml   bool
	dryRun bool
}

type optionView struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type hostView struct {
	Index    int          `yaml:"index"`
	Kind     string       `yaml:"kind"`
	Patterns []string     `yaml:"patterns"`
	File     string       `yaml:"file"`
	Line     int          `yaml:"line"`
	Options  []optionView `yaml:"options,omitempty"`
}

func newHostView(i int, h sshconfig.HostEntry) hostView {
	hv := hostView{
		Index:    i,
		Kind:     h.Kind.String(),
		Patterns: h.Patterns,
		File:     h.Path,
		Line:     h.Header.Start + 1,
	}
	for _, o := range h.Options {
		hv.Options = append(hv.Options, optionView{Key: o.Key, Value: o.Value})
	}

	return hv
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sshconfig [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "sshconfig edits ssh client configs across Include files and\n")
		fmt.Fprintf(os.Stderr, "only rewrites the lines that changed.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  hosts                       list host and match blocks\n")
		fmt.Fprintf(os.Stderr, "  show <n>                    show one block\n")
		fmt.Fprintf(os.Stderr, "  get <n> <key>               print all values of a key\n")
		fmt.Fprintf(os.Stderr, "  set <n> <key> <value>       set (or add) an option\n")
		fmt.Fprintf(os.Stderr, "  add <n> <key> <value>       add an option, keeping existing ones\n")
		fmt.Fprintf(os.Stderr, "  unset <n> <key>             remove all occurrences of an option\n")
		fmt.Fprintf(os.Stderr, "  rename <n> <patterns...>    replace the host patterns\n")
		fmt.Fprintf(os.Stderr, "  add-host <patterns...>      append a new Host block\n")
		fmt.Fprintf(os.Stderr, "  rm-host <n>                 remove a block\n")
		fmt.Fprintf(os.Stderr, "  legacy <n>                  enable legacy algorithms for a block\n")
		fmt.Fprintf(os.Stderr, "  files                       list loaded files\n")
		fmt.Fprintf(os.Stderr, "  diag                        list parse and include problems\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
	}

	var opts options
	pflag.StringVarP(&opts.file, "file", "f", "", "Config file to open (default ~/.ssh/config)")
	pflag.StringVarP(&opts.to, "to", "t", "", "File to add new hosts to (default: the root config)")
	pflag.BoolVarP(&opts.yaml, "yaml", "y", false, "Print output as YAML")
	pflag.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Print changed files instead of saving them")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()

		return
	}
	if *versionFlag {
		fmt.Printf("sshconfig version %s\n", version)

		return
	}

	if err := run(context.Background(), os.Stdout, opts, pflag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if errors.Is(err, errUsage) {
			pflag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts options, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	ed := sshconfig.New()
	var err error
	if opts.file != "" {
		err = ed.Open(ctx, opts.file)
	} else {
		err = ed.OpenDefault(ctx)
	}
	if err != nil {
		return err
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "hosts":
		return listHosts(w, ed, opts)
	case "files":
		return output(w, opts, ed.Documents())
	case "diag":
		return listDiagnostics(w, ed, opts)
	}

	if len(args) < 1 {
		if cmd != "add-host" {
			return fmt.Errorf("%w: %s needs a host index", errUsage, cmd)
		}

		return fmt.Errorf("%w: add-host needs at least one pattern", errUsage)
	}

	if cmd == "add-host" {
		i, err := ed.AddHost(opts.to, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "added host %d\n", i)

		return persist(w, ed, opts)
	}

	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid host index %q", errUsage, args[0])
	}
	args = args[1:]

	switch cmd {
	case "show":
		h, err := ed.Host(i)
		if err != nil {
			return err
		}

		return output(w, opts, newHostView(i, h))
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("%w: get <n> <key>", errUsage)
		}
		h, err := ed.Host(i)
		if err != nil {
			return err
		}
		vs := h.GetAll(args[0])
		if len(vs) == 0 {
			return fmt.Errorf("%w: %s", sshconfig.ErrOptionNotFound, args[0])
		}

		return output(w, opts, vs)
	case "set", "add":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s <n> <key> <value>", errUsage, cmd)
		}
		if cmd == "set" {
			err = ed.SetOption(i, args[0], args[1])
		} else {
			err = ed.AddOption(i, args[0], args[1])
		}
	case "unset":
		if len(args) != 1 {
			return fmt.Errorf("%w: unset <n> <key>", errUsage)
		}
		err = ed.UnsetOption(i, args[0])
	case "rename":
		err = ed.SetPatterns(i, args...)
	case "rm-host":
		err = ed.RemoveHost(i)
	case "legacy":
		var n int
		n, err = ed.ApplyLegacyOptions(i)
		if err == nil {
			fmt.Fprintf(w, "changed %d options\n", n)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return err
	}

	return persist(w, ed, opts)
}

func listHosts(w io.Writer, ed *sshconfig.Editor, opts options) error {
	hosts := ed.Hosts()
	if opts.yaml {
		views := make([]hostView, 0, len(hosts))
		for i, h := range hosts {
			views = append(views, newHostView(i, h))
		}

		return output(w, opts, views)
	}

	for i, h := range hosts {
		fmt.Fprintf(w, "%3d  %s  (%s:%d)\n", i, h, h.Path, h.Header.Start+1)
	}

	return nil
}

func listDiagnostics(w io.Writer, ed *sshconfig.Editor, opts options) error {
	diags := ed.Diagnostics()
	if opts.yaml {
		out := make([]string, 0, len(diags))
		for _, d := range diags {
			out = append(out, d.String())
		}

		return output(w, opts, out)
	}

	for _, d := range diags {
		fmt.Fprintln(w, d)
	}

	return nil
}

func output(w io.Writer, opts options, v any) error {
	if !opts.yaml {
		switch t := v.(type) {
		case []string:
			for _, s := range t {
				fmt.Fprintln(w, s)
			}

			return nil
		case hostView:
			fmt.Fprintf(w, "%s %v  (%s:%d)\n", t.Kind, t.Patterns, t.File, t.Line)
			for _, o := range t.Options {
				fmt.Fprintf(w, "    %s %s\n", o.Key, o.Value)
			}

			return nil
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return enc.Close()
}

// persist saves all changed files or, in dry-run mode, prints them.
func persist(w io.Writer, ed *sshconfig.Editor, opts options) error {
	if opts.dryRun {
		for _, p := range ed.DirtyDocuments() {
			buf, err := ed.Bytes(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "--- %s\n%s", p, buf)
		}

		return nil
	}

	res, err := ed.SaveAll()
	for _, r := range res {
		if r.Err != nil {
			fmt.Fprintf(w, "failed %s: %s\n", r.Path, r.Err)

			continue
		}
		fmt.Fprintf(w, "saved %s\n", r.Path)
	}

	return err
}
