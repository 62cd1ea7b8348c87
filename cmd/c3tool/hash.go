package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Faultbox/c3kit/pkg/c3hash"
)

func hashCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Print the hash, pack id and real id of each string",
		ArgsUsage: "<string>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("hash: at least one string is required")
			}
			w := stdout(cmd)
			for _, s := range cmd.Args().Slice() {
				fmt.Fprintf(w, "%s\thash=0x%08x pack=0x%08x real=0x%08x\n",
					s, c3hash.HashString(s), c3hash.PackID(s), c3hash.RealID(s))
			}
			return nil
		},
	}
}
