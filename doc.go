// Package sshconfig implements a pure Go editor for OpenSSH client config
// files (ssh_config(5)). A config may be spread over several files linked by
// Include directives; the package loads all of them, presents the Host and
// Match blocks in the order ssh evaluates them and writes changes back to the
// file each block came from.
//
// Files are kept line by line. Lines that were not edited are written back
// byte-identical, including comments, blank lines, indentation, quoting and
// line endings. Option values are treated as opaque strings, nothing is
// validated against what ssh accepts.
//
// # Usage
//
// Load the user's config (~/.ssh/config), change a host and save:
//
//	ed := sshconfig.New()
//	if err := ed.OpenDefault(ctx); err != nil {
//		log.Fatal(err)
//	}
//	i := ed.Find("example.com")
//	if err := ed.SetOption(i, "User", "admin"); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := ed.SaveAll(); err != nil {
//		log.Fatal(err)
//	}
//
// Missing default configs are not an error; the editor starts empty and the
// file is created on the first save. Use Open to load any other file as root.
//
// # Includes
//
// Include patterns may use glob(3) wildcards, "~" for the home directory and
// paths relative to the including file. Every file is loaded once even if it
// is included from several places. Include lines whose target is missing,
// unreadable or would close a cycle stay in place and are reported by
// Diagnostics.
//
// # Error Handling
//
// Use errors.Is to detect common error categories:
//
//	if err := ed.SetOption(i, "Host", "x"); errors.Is(err, sshconfig.ErrInvalidKey) {
//		// Host, Match and Include are structural and can not be set as options
//	}
//
//	res, err := ed.SaveAll()
//	for _, r := range res {
//		if r.Err != nil {
//			// this file is still dirty and untouched on disk
//		}
//	}
//
// # Concurrency
//
// An Editor serializes all operations with a single lock. Documents and
// nodes are never handed out for modification; Hosts returns snapshots.
//
// # Known limitations
//
// * "~user/" include patterns are not expanded
// * A file included from several places only contributes its entries at the first inclusion
// * Match criteria are stored as plain patterns and never evaluated
package sshconfig
