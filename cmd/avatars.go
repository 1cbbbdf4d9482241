/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/nexora-chat/apiserver/config"
	"github.com/nexora-chat/apiserver/internal/avatars"
	"github.com/spf13/cobra"
)

var avatarsSeedDir string

// avatarsCmd represents the avatars command.
var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "Manage the self-hosted avatar pool",
}

var avatarsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upload the avatar pool images to object storage",
	Long: `Uploads the 100 pool images (1.png .. 100.png) from a local directory
into the configured object storage backend. Usage:

	nexora avatars seed --dir ./assets/avatars
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Avatars.Backend == "" {
			return fmt.Errorf("AVATAR_STORAGE_BACKEND is required to seed avatars")
		}

		store, err := avatars.NewObjectStore(cmd.Context(), cfg.Avatars)
		if err != nil {
			return err
		}

		uploaded, err := avatars.Seed(cmd.Context(), store, avatarsSeedDir)
		if err != nil {
			return fmt.Errorf("seed failed after %d uploads: %w", uploaded, err)
		}
		fmt.Printf("uploaded %d avatar images\n", uploaded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(avatarsCmd)
	avatarsCmd.AddCommand(avatarsSeedCmd)

	avatarsSeedCmd.Flags().StringVar(&avatarsSeedDir, "dir", "./assets/avatars", "Directory containing the pool images")
}
