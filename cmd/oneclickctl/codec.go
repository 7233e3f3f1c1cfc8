package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivankudzin/oneclick/internal/security"
)

func encodeIDCmd(load configLoader) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "encode-id [inscription-id]",
		Short: "Encrypt an inscription id the way finish callback urls carry it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := codecFor(load, key)
			if err != nil {
				return err
			}
			token, err := codec.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "encryption key, defaults to codec.encryption_key")

	return cmd
}

func decodeIDCmd(load configLoader) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "decode-id [hash]",
		Short: "Decrypt the hash segment of a finish callback url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := codecFor(load, key)
			if err != nil {
				return err
			}
			id, err := codec.Decrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "encryption key, defaults to codec.encryption_key")

	return cmd
}

func codecFor(load configLoader, key string) (*security.IDCodec, error) {
	if key == "" {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		key = cfg.Codec.EncryptionKey
	}
	if key == "" {
		return nil, fmt.Errorf("no encryption key: pass --key or set ENCRYPTION_KEY")
	}
	return security.NewIDCodec(key)
}
