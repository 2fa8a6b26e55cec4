package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of the redline workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "Running Redline Doctor...")

		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)

		hasIssues := false
		check := func(name string, fn func() error) {
			_, _ = fmt.Fprintf(out, "Checking %s... ", name)
			if err := fn(); err != nil {
				_, _ = fmt.Fprintf(out, "FAIL\n  Error: %v\n", err)
				hasIssues = true
			} else {
				_, _ = fmt.Fprintf(out, "PASS\n")
			}
		}

		check("Initialization", func() error {
			if !repo.IsInitialized() {
				return fmt.Errorf(".redline directory not found (run 'redline init <document.html>')")
			}
			return nil
		})
		if hasIssues {
			return NewCLIError("doctor found issues", "Run 'redline init <document.html>' first", storage.ErrNotInitialized)
		}

		cfg := config.Default()
		check("Config File", func() error {
			loaded, err := config.Load(repo)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		})

		check("Document", func() error {
			doc, err := repo.LoadDocument()
			if err != nil {
				return err
			}
			if n := cfg.Marker().Count(doc); n > 0 {
				return fmt.Errorf("%d leftover highlight markers (run 'redline strip')", n)
			}
			return nil
		})

		check("Feedback", func() error {
			if !repo.HasFeedback() {
				_, _ = fmt.Fprint(out, "(none yet) ")
				return nil
			}
			_, err := repo.LoadFeedback()
			return err
		})

		check("Decisions", func() error {
			_, err := repo.LoadDecisions()
			return err
		})

		check("Journal Integrity", func() error {
			journal, err := storage.OpenJournal(repo)
			if err != nil {
				return err
			}
			broken, err := journal.VerifyIntegrity()
			if err != nil {
				return err
			}
			if broken >= 0 {
				return fmt.Errorf("hash chain broken at record %d", broken)
			}
			return nil
		})

		check("Webhook Deliveries", func() error {
			dl, err := webhook.OpenDeadLetterStore(repo)
			if err != nil {
				return err
			}
			letters, err := dl.ReadAll()
			if err != nil {
				return err
			}
			if len(letters) > 0 {
				return fmt.Errorf("%d undelivered notifications (run 'redline webhook deadletters')", len(letters))
			}
			return nil
		})

		if hasIssues {
			_, _ = fmt.Fprintln(out, "\nIssues found! Please fix them before continuing.")
			return fmt.Errorf("doctor found issues")
		}
		_, _ = fmt.Fprintln(out, "\nEverything looks good!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
