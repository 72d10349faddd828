package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"presence-chat/domain"
	"presence-chat/repositories"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Restrict to one prefix: participant: or msg:")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *prefix == "" || *prefix == repositories.ParticipantPrefix {
		rows, err := scan(db, repositories.ParticipantPrefix, participantRow)
		if err != nil {
			log.Fatal(err)
		}
		render("Participants", []string{"Key", "Name", "Last status"}, rows)
	}
	if *prefix == "" || *prefix == repositories.MessagePrefix {
		rows, err := scan(db, repositories.MessagePrefix, messageRow)
		if err != nil {
			log.Fatal(err)
		}
		render("Messages", []string{"Key", "ID", "Time", "Type", "From", "To", "Text"}, rows)
	}
}

func participantRow(key string, value []byte) ([]string, error) {
	p, err := repositories.DecodeParticipant(value)
	if err != nil {
		return nil, err
	}
	return []string{key, p.Name, p.LastActiveAt.Format(time.RFC3339)}, nil
}

func messageRow(key string, value []byte) ([]string, error) {
	m, err := repositories.DecodeMessage(value)
	if err != nil {
		return nil, err
	}
	kind := string(m.Kind)
	if m.Kind == domain.KindPrivateMessage {
		kind = color.Yellow.Render(kind)
	}
	return []string{key, m.ID.String()[:8], m.Time, kind, m.From, m.To, m.Text}, nil
}

// scan decodes every entry under prefix. Undecodable entries are reported and skipped.
func scan(db *badger.DB, prefix string, toRow func(key string, value []byte) ([]string, error)) ([][]string, error) {
	var rows [][]string
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				row, err := toRow(key, v)
				if err != nil {
					fmt.Println(color.Red.Sprintf("Error decoding key %s: %v", key, err))
					return nil
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

func render(title string, header []string, rows [][]string) {
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf(" %s (%d) ", title, len(rows))))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(rows)
	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// A write-mode open truncates the value log, then read-only works again.
		repaired, repairErr := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repaired.Close()
		return badger.Open(opts)
	}
	return db, err
}
