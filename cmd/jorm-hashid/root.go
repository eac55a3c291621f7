package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shrek82/jorm-hashids/config"
	"github.com/shrek82/jorm-hashids/hashids"
)

// ErrDecodeFailed is returned when at least one argument to decode is not a
// valid hashid for the configured encoder.
var ErrDecodeFailed = errors.New("decode failed")

// RootOptions holds the global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Salt       string
	MinLength  int
	Alphabet   string
}

// NewRootCommand creates the root command for the jorm-hashid CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "jorm-hashid",
		Short:         "Encode and decode jorm hashids",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML or YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Salt, "salt", "", "hashids salt")
	cmd.PersistentFlags().IntVar(&opts.MinLength, "min-length", 0, "minimum hashid length")
	cmd.PersistentFlags().StringVar(&opts.Alphabet, "alphabet", "", "hashids alphabet")

	cmd.AddCommand(newEncodeCommand(opts))
	cmd.AddCommand(newDecodeCommand(opts))

	return cmd
}

// encoder loads the config and layers the flags the user actually set on top.
func (o *RootOptions) encoder(cmd *cobra.Command) (hashids.Encoder, error) {
	var flags config.FlagOverrides
	if cmd.Flags().Changed("salt") {
		flags.Salt = &o.Salt
	}
	if cmd.Flags().Changed("min-length") {
		flags.MinLength = &o.MinLength
	}
	if cmd.Flags().Changed("alphabet") {
		flags.Alphabet = &o.Alphabet
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: o.ConfigPath, Flags: flags})
	if err != nil {
		return nil, err
	}
	return cfg.Encoder()
}

func newEncodeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <id>...",
		Short: "Encode integer ids as hashids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := opts.encoder(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				h, err := enc.Encode(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\t%s\n", id, h)
			}
			return nil
		},
	}
}

func newDecodeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hashid>...",
		Short: "Decode hashids back to integer ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := opts.encoder(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			red := color.New(color.FgRed)
			failed := 0
			for _, arg := range args {
				nums, err := enc.Decode(arg)
				if err != nil {
					failed++
					red.Fprintf(out, "%s\tinvalid hashid\n", arg)
					continue
				}
				parts := make([]string, len(nums))
				for i, n := range nums {
					parts[i] = strconv.FormatInt(n, 10)
				}
				fmt.Fprintf(out, "%s\t%s\n", arg, strings.Join(parts, ","))
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d hashids", ErrDecodeFailed, failed, len(args))
			}
			return nil
		},
	}
}
