// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/section/config"
	"github.com/luxfi/section/identity"
)

// genesisSummary is what genesisCmd prints: enough for an operator to
// seed a single-elder section without exposing any key share material,
// which identity.SecretKeyShare does not expose outside its package.
type genesisSummary struct {
	Elder       string            `yaml:"elder"`
	CombinedKey string            `yaml:"combinedKey"`
	Threshold   int               `yaml:"threshold"`
	Parameters  config.Parameters `yaml:"parameters"`
}

func genesisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "Bootstrap a single-elder genesis section and print its material",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenesis(cmd)
		},
	}
}

func runGenesis(cmd *cobra.Command) error {
	name, err := randomName()
	if err != nil {
		return fmt.Errorf("generating genesis node name: %w", err)
	}

	share, err := identity.GenerateSecretKeyShare(0)
	if err != nil {
		return fmt.Errorf("generating genesis key share: %w", err)
	}
	pks := identity.NewPublicKeySet(1, map[uint32]*blst.P1Affine{0: share.PublicKey()})

	params := config.Default()
	if err := params.Verify(); err != nil {
		return fmt.Errorf("default parameters invalid: %w", err)
	}

	summary := genesisSummary{
		Elder:       name.String(),
		CombinedKey: fmt.Sprintf("%x", pks.CombinedPK.Serialize()),
		Threshold:   pks.Threshold,
		Parameters:  params,
	}
	out, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// randomName derives a fresh 256-bit node identifier the same way
// identity.GenerateSecretKeyShare seeds its key material: from
// crypto/rand, never a deterministic or reused source.
func randomName() (identity.Name, error) {
	var buf [identity.NameLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return identity.Name{}, err
	}
	return identity.NameFromBytes(buf[:]), nil
}
