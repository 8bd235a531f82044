package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/shmipc/shmipc/counter"
	"github.com/shmipc/shmipc/list"
	"github.com/shmipc/shmipc/vector"
)

// Run dispatches the requested subcommand and returns a process exit code:
// 0 on success, 1 when the subcommand fails, 2 for a missing or unknown
// subcommand.
func Run(stdout, stderr io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: shmctl <create|inspect> [flags]")
		return 2
	}

	sub, rest := args[0], args[1:]

	var err error

	switch sub {
	case "create":
		err = runCreate(stdout, stderr, rest)
	case "inspect":
		err = runInspect(stdout, stderr, rest)
	default:
		fmt.Fprintf(stderr, "shmctl: unknown subcommand %q\n", sub)
		return 2
	}

	if err != nil {
		fmt.Fprintln(stderr, "shmctl:", err)
		return 1
	}

	return 0
}

// runCreate opens (creating as needed) every segment named in a YAML
// descriptor file, reporting which ones this invocation created.
func runCreate(stdout, stderr io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("create", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	configPath := flagSet.String("config", "", "path to a segment descriptor (YAML)")
	dirOverride := flagSet.String("dir", "", "override the backing directory for every segment")

	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if *configPath == "" {
		return fmt.Errorf("create: --config is required")
	}

	d, err := loadDescriptor(*configPath)
	if err != nil {
		return err
	}

	for _, s := range d.Segments {
		dir := *dirOverride

		created, err := openAndClose(s, dir)
		if err != nil {
			return fmt.Errorf("create: segment %q: %w", s.Name, err)
		}

		state := "joined existing"
		if created {
			state = "created"
		}

		fmt.Fprintf(stdout, "%s\t%s\t%s\n", s.Kind, s.Name, state)
	}

	return nil
}

// openAndClose opens segment s (creating it if absent) and immediately
// closes this process's handle, reporting whether the open created it.
// vector.Open reports this itself; list.Open and counter.OpenSet do not, so
// for those a backing file that was absent just before the open counts as
// created.
func openAndClose(s segmentSpec, dir string) (bool, error) {
	segDir := dir
	if segDir == "" {
		segDir = "/dev/shm"
	}

	_, statErr := os.Stat(filepath.Join(segDir, s.Name))
	existed := statErr == nil

	switch s.Kind {
	case kindVector:
		v, created, err := vector.Open(vector.Options{Dir: dir, Name: s.Name, ElementSize: s.ElementSize, Capacity: s.Capacity})
		if err != nil {
			return false, err
		}

		return created, v.Close()
	case kindList:
		l, err := list.Open(list.Options{Dir: dir, Name: s.Name, ElementSize: s.ElementSize, Capacity: s.Capacity})
		if err != nil {
			return false, err
		}

		return !existed, l.Close()
	case kindCounter:
		set, err := counter.OpenSet(counter.SetOptions{Dir: dir, Name: s.Name, Capacity: s.Capacity})
		if err != nil {
			return false, err
		}

		return !existed, set.Close()
	default:
		return false, fmt.Errorf("unknown kind %q", s.Kind)
	}
}

// runInspect opens a single named segment ad hoc (no descriptor needed) and
// prints its live size alongside the fixed capacity/element-size it was
// created with.
func runInspect(stdout, stderr io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	dir := flagSet.String("dir", "", "backing directory (defaults to /dev/shm)")
	name := flagSet.String("name", "", "segment name")
	kind := flagSet.String("kind", kindVector, "segment kind: vector, list, or counter")
	elementSize := flagSet.Uint64("element-size", 0, "element size in bytes (vector/list only)")
	capacity := flagSet.Uint64("capacity", 0, "slot capacity")

	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	if *name == "" {
		return fmt.Errorf("inspect: --name is required")
	}

	switch *kind {
	case kindVector:
		v, _, err := vector.Open(vector.Options{Dir: *dir, Name: *name, ElementSize: *elementSize, Capacity: *capacity})
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		defer v.Close()

		fmt.Fprintf(stdout, "name=%s kind=vector size=%d capacity=%d elementSize=%d\n",
			*name, v.Size(), v.Capacity(), v.ElementSize())
	case kindList:
		l, err := list.Open(list.Options{Dir: *dir, Name: *name, ElementSize: *elementSize, Capacity: *capacity})
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		defer l.Close()

		n, err := l.Length()
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}

		fmt.Fprintf(stdout, "name=%s kind=list length=%d\n", *name, n)
	case kindCounter:
		set, err := counter.OpenSet(counter.SetOptions{Dir: *dir, Name: *name, Capacity: *capacity})
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		defer set.Close()

		fmt.Fprintf(stdout, "name=%s kind=counter (open ok)\n", *name)
	default:
		return fmt.Errorf("inspect: unknown kind %q", *kind)
	}

	return nil
}
