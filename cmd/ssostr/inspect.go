package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rawbytedev/sso"
)

var (
	shortColor = color.New(color.FgGreen, color.Bold)
	longColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
)

// inspection is what inspect prints for one input.
type inspection struct {
	Text      string
	Short     bool
	Len       int
	Cap       int
	Runes     int
	Footprint uintptr
	Width     int
	Hash      uint64
}

func inspect(s *sso.String) inspection {
	return inspection{
		Text:      s.String(),
		Short:     s.IsShort(),
		Len:       s.Len(),
		Cap:       s.Cap(),
		Runes:     s.AsStr().RuneCount(),
		Footprint: unsafe.Sizeof(*s),
		Width:     s.Width(),
		Hash:      s.Hash64(),
	}
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [text...]",
		Short: "Show how each input is stored",
		Long:  "Show how each argument, or each line of stdin when none are given, is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := cmd.Flags().GetBool("dump")
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), cmd.InOrStdin(), args, dump)
		},
	}
	cmd.Flags().Bool("dump", false, "dump the full record with go-spew")
	return cmd
}

func runInspect(w io.Writer, r io.Reader, args []string, dump bool) error {
	inputs, err := readInputs(r, args)
	if err != nil {
		return err
	}
	var failed int
	for _, in := range inputs {
		s, err := sso.FromUTF8(in)
		if err != nil {
			failed++
			var utf8Err *sso.FromUTF8Error
			if errors.As(err, &utf8Err) {
				fmt.Fprintf(w, "%s %q: valid up to byte %d\n", errorColor.Sprint("invalid"), in, utf8Err.ValidUpTo())
			} else {
				fmt.Fprintf(w, "%s %q: %v\n", errorColor.Sprint("invalid"), in, err)
			}
			continue
		}
		info := inspect(&s)
		s.Free()
		if dump {
			spew.Fdump(w, info)
			continue
		}
		state := shortColor.Sprint("short")
		if !info.Short {
			state = longColor.Sprint("long ")
		}
		fmt.Fprintf(w, "%s %q len=%d cap=%d runes=%d footprint=%d width=%d hash=%#016x\n",
			state, info.Text, info.Len, info.Cap, info.Runes, info.Footprint, info.Width, info.Hash)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs are not valid UTF-8", failed, len(inputs))
	}
	return nil
}

// readInputs returns args as byte slices, or every line of r when args is
// empty.
func readInputs(r io.Reader, args []string) ([][]byte, error) {
	if len(args) > 0 {
		out := make([][]byte, len(args))
		for i, a := range args {
			out[i] = []byte(a)
		}
		return out, nil
	}
	var out [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		out = append(out, append([]byte(nil), sc.Bytes()...))
	}
	return out, sc.Err()
}
