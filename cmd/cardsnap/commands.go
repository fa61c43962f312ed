package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bruhadev45/Cardsnap-AI/internal/assistant"
	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/contacts"
	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/export"
	"github.com/Bruhadev45/Cardsnap-AI/internal/photostore"
)

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a business card from image files",
	Long: `Scan a business card from image files and save it after review.

Examples:
  cardsnap scan --user ann@acme.com --front front.jpg
  cardsnap scan --user ann@acme.com --front front.jpg --back back.jpg --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("user")
		front, _ := cmd.Flags().GetString("front")
		back, _ := cmd.Flags().GetString("back")
		yes, _ := cmd.Flags().GetBool("yes")

		if ref == "" || front == "" {
			return fmt.Errorf("--user and --front are required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.users.Lookup(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("resolving user %q: %w", ref, err)
		}

		sess := capture.NewSession(u.ID, a.extractor, a.contacts, a.logger)
		p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout(), yes: yes}
		return runScan(cmd.Context(), sess, a.contacts, front, back, p)
	},
}

func init() {
	scanCmd.Flags().String("user", "", "user id or email that owns the contact")
	scanCmd.Flags().String("front", "", "image file of the card front")
	scanCmd.Flags().String("back", "", "image file of the card back")
	scanCmd.Flags().Bool("yes", false, "save without asking, even when a duplicate exists")
}

// contactLister is the part of service.ContactService the scan needs for
// duplicate checks.
type contactLister interface {
	List(ctx context.Context, ownerID string, f contacts.Filter) ([]*domain.Contact, error)
}

// fileCapturer reads a card photo from disk. The type is sniffed from the
// content, falling back to the file extension.
func fileCapturer(path string) capture.Capturer {
	return capture.CapturerFunc(func(context.Context) (domain.Image, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Image{}, err
		}
		mimeType := http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = photostore.ExtToMimeType(path)
		}
		return domain.Image{Data: data, MimeType: mimeType}, nil
	})
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

// confirm asks a yes/no question. Anything but y/yes is no.
func (p *prompter) confirm(question string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// runScan drives sess from the front photo through review and, when the user
// agrees, saves the contact.
func runScan(ctx context.Context, sess *capture.Session, lister contactLister, front, back string, p *prompter) error {
	if _, err := sess.Capture(ctx, fileCapturer(front)); err != nil {
		return fmt.Errorf("capturing front: %w", err)
	}

	var (
		st  capture.State
		err error
	)
	if back != "" {
		if _, err := sess.ChooseBack(); err != nil {
			return err
		}
		st, err = sess.Capture(ctx, fileCapturer(back))
	} else {
		st, err = sess.SkipBack(ctx)
	}
	if err != nil {
		return fmt.Errorf("reading card: %w", err)
	}

	review, ok := st.(capture.Review)
	if !ok {
		return fmt.Errorf("unexpected step %s after extraction", st.Step())
	}
	printContact(p.out, review.Candidate)

	if !p.confirm("Save this contact?") {
		_, _ = sess.Cancel()
		fmt.Fprintln(p.out, "Discarded.")
		return nil
	}

	existing, err := lister.List(ctx, sess.OwnerID(), contacts.Filter{})
	if err != nil {
		return fmt.Errorf("loading contacts: %w", err)
	}
	outcome, err := sess.Confirm(ctx, existing, false)
	if err != nil {
		return err
	}

	if !outcome.Saved() {
		fmt.Fprintln(p.out, "A similar contact already exists:")
		for _, d := range outcome.Duplicates {
			fmt.Fprintf(p.out, "  - %s (%s) %s\n", d.FullName, d.Company, d.Email)
		}
		if !p.confirm("Save anyway?") {
			_, _ = sess.Cancel()
			fmt.Fprintln(p.out, "Discarded.")
			return nil
		}
		if outcome, err = sess.Confirm(ctx, existing, true); err != nil {
			return err
		}
	}

	fmt.Fprintf(p.out, "Saved contact %s\n", outcome.Contact.ID)
	return nil
}

func printContact(w io.Writer, c *domain.Contact) {
	rows := []struct{ label, value string }{
		{"Name", c.FullName},
		{"Job Title", c.JobTitle},
		{"Company", c.Company},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Website", c.Website},
		{"Address", c.Address},
	}
	for _, r := range rows {
		if r.value == "" {
			r.value = "-"
		}
		fmt.Fprintf(w, "%-10s %s\n", r.label+":", r.value)
	}
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contacts as CSV",
	Long: `Export contacts as CSV.

Examples:
  cardsnap export --user ann@acme.com > contacts.csv
  cardsnap export --user ann@acme.com --excel --out contacts.csv
  cardsnap export --user ann@acme.com --company Acme --sort name-asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("user")
		excel, _ := cmd.Flags().GetBool("excel")
		out, _ := cmd.Flags().GetString("out")
		query, _ := cmd.Flags().GetString("query")
		companies, _ := cmd.Flags().GetStringSlice("company")
		sortFlag, _ := cmd.Flags().GetString("sort")

		if ref == "" {
			return fmt.Errorf("--user is required")
		}
		sort, err := contacts.ParseSort(sortFlag)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.users.Lookup(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("resolving user %q: %w", ref, err)
		}
		list, err := a.contacts.List(cmd.Context(), u.ID, contacts.Filter{Query: query, Companies: companies, Sort: sort})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					a.logger.Error("failed to close export file", "error", err)
				}
			}()
			w = f
		}
		return writeExport(w, list, excel)
	},
}

func init() {
	exportCmd.Flags().String("user", "", "user id or email")
	exportCmd.Flags().Bool("excel", false, "prefix a UTF-8 byte order mark for Excel")
	exportCmd.Flags().String("out", "", "output file (default stdout)")
	exportCmd.Flags().String("query", "", "only contacts matching this search term")
	exportCmd.Flags().StringSlice("company", nil, "only contacts at these companies")
	exportCmd.Flags().String("sort", "", "sort order: "+sortNames())
}

func sortNames() string {
	names := make([]string, 0, len(contacts.Sorts))
	for _, s := range contacts.Sorts {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func writeExport(w io.Writer, list []*domain.Contact, excel bool) error {
	if excel {
		return export.ExcelCSV(w, list, nil)
	}
	return export.CSV(w, list, nil)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant about your contacts",
	Long: `Ask the assistant about your contacts.

Examples:
  cardsnap ask --user ann@acme.com "Who do I know at Acme?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("user")
		if ref == "" {
			return fmt.Errorf("--user is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.users.Lookup(cmd.Context(), ref)
		if err != nil {
			return fmt.Errorf("resolving user %q: %w", ref, err)
		}
		list, err := a.contacts.List(cmd.Context(), u.ID, contacts.Filter{})
		if err != nil {
			return err
		}

		reply, err := assistant.New(a.chat, a.logger).Ask(cmd.Context(), strings.Join(args, " "), list)
		if errors.Is(err, assistant.ErrEmptyQuery) {
			return fmt.Errorf("question is empty")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	askCmd.Flags().String("user", "", "user id or email")
}
