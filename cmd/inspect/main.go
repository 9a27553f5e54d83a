package main

import (
	"dm-lab/domain"
	"dm-lab/repositories"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Prints the direct messages stored in a badger directory. The server must be stopped or the directory
// copied first: badger allows a single process per directory.
func main() {
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	between := flag.String("between", "", "Only show the conversation of two users, e.g. 5:9")
	unreadOnly := flag.Bool("unread", false, "Only show unread messages")
	noColor := flag.Bool("no-color", false, "Disable colours")
	flag.Parse()

	if *noColor {
		color.Disable()
	}
	filter, err := parseFilter(*between, *unreadOnly)
	if err != nil {
		log.Fatal(err)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewMessageRepository(db, slog.Default(), nil)
	count, err := render(os.Stdout, repository, filter)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(color.New(color.FgGreen).Render(fmt.Sprintf("%d message(s)", count)))
}

type filter struct {
	a, b       domain.UserID
	unreadOnly bool
}

func (f filter) keep(m domain.Message) bool {
	if f.unreadOnly && m.IsRead {
		return false
	}
	return f.a == 0 || m.Involves(f.a, f.b)
}

func parseFilter(between string, unreadOnly bool) (filter, error) {
	f := filter{unreadOnly: unreadOnly}
	if between == "" {
		return f, nil
	}
	rawA, rawB, found := strings.Cut(between, ":")
	if !found {
		return f, fmt.Errorf("-between must look like 5:9, got %q", between)
	}
	var err error
	if f.a, err = domain.ParseUserID(rawA); err != nil {
		return f, err
	}
	if f.b, err = domain.ParseUserID(rawB); err != nil {
		return f, err
	}
	return f, nil
}

type walker interface {
	Walk(fn func(domain.Message) error) error
}

// render prints one row per kept message. Unread rows are highlighted.
func render(out io.Writer, store walker, f filter) (int, error) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Sender", "Receiver", "Created At", "Read", "Body"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	unread := color.New(color.FgYellow, color.OpBold)
	count := 0
	err := store.Walk(func(m domain.Message) error {
		if !f.keep(m) {
			return nil
		}
		count++
		// First 8 characters of the id are enough to tell messages apart
		id := m.ID.String()[:8]
		read := "yes"
		body := m.Body
		if !m.IsRead {
			read = unread.Render("no")
			body = unread.Render(body)
		}
		table.Append([]string{
			id,
			m.SenderID.String(),
			m.ReceiverID.String(),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			read,
			body,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	table.Render()
	return count, nil
}
