package main

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/toolkits/pkg/logger"

	"github.com/rawbytedev/sso"
	"github.com/rawbytedev/sso/pkg/wire"
)

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack [text...]",
		Short: "Write the inputs as one wire frame to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			compress, err := cmd.Flags().GetBool("zstd")
			if err != nil {
				return err
			}
			level, err := cmd.Flags().GetString("level")
			if err != nil {
				return err
			}
			index, err := cmd.Flags().GetBool("index")
			if err != nil {
				return err
			}
			ok, lvl := zstd.EncoderLevelFromString(level)
			if !ok {
				return fmt.Errorf("unknown zstd level %q", level)
			}
			opts := wire.Options{Compress: compress, Level: lvl, Index: index}
			return runPack(cmd.OutOrStdout(), cmd.InOrStdin(), args, opts)
		},
	}
	cmd.Flags().Bool("zstd", false, "compress the frame body")
	cmd.Flags().String("level", "default", "zstd level (fastest|default|better|best)")
	cmd.Flags().Bool("index", false, "write an offset table")
	return cmd
}

func runPack(w io.Writer, r io.Reader, args []string, opts wire.Options) error {
	inputs, err := readInputs(r, args)
	if err != nil {
		return err
	}
	strs := make([]*sso.String, len(inputs))
	for i, in := range inputs {
		s := sso.FromUTF8Lossy(in)
		strs[i] = &s
	}
	defer func() {
		for _, s := range strs {
			s.Free()
		}
	}()

	frame, err := wire.Encode(strs, opts)
	if err != nil {
		return err
	}
	logger.Debugf("pack: %d strings, %d byte frame, zstd=%v index=%v", len(strs), len(frame), opts.Compress, opts.Index)
	_, err = w.Write(frame)
	return err
}

func newUnpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack",
		Short: "Read one wire frame from stdin and print its strings, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := cmd.Flags().GetBool("header")
			if err != nil {
				return err
			}
			return runUnpack(cmd.OutOrStdout(), cmd.InOrStdin(), header)
		},
	}
	cmd.Flags().Bool("header", false, "print only the frame header")
	return cmd
}

func runUnpack(w io.Writer, r io.Reader, headerOnly bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if headerOnly {
		h, err := wire.ReadHeader(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "version=%d length=%d zstd=%v index=%v\n",
			h.Version, h.Length, h.Flags&wire.FlagZstd != 0, h.Flags&wire.FlagIndex != 0)
		return err
	}
	v, err := wire.Open(data)
	if err != nil {
		logger.Errorf("unpack: %v", err)
		return err
	}
	for s, err := range v.All() {
		if err != nil {
			logger.Errorf("unpack: %v", err)
			return err
		}
		if _, err := fmt.Fprintln(w, s.String()); err != nil {
			return err
		}
	}
	return nil
}
