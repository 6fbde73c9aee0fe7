package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"pulse-lab/domain"
	"pulse-lab/infrastructure/storage"
)

// Read-only store viewer. With -creator it renders that creator's
// lifetime leaderboard; otherwise it dumps every entry under -prefix.
func main() {
	dbPath := flag.String("db", "/tmp/pulse", "Path to badger DB")
	creator := flag.Int64("creator", 0, "Render the leaderboard owned by this user id")
	// Par défaut on scanne tout le magasin, index compris
	prefix := flag.String("prefix", "", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *creator > 0 {
		if err := renderLeaderboard(db, domain.UserID(*creator)); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := renderScan(db, *prefix); err != nil {
		log.Fatal(err)
	}
}

func renderLeaderboard(db *badger.DB, creator domain.UserID) error {
	scores := storage.NewScoreStore(db, logs.GetLoggerFromLevel(slog.LevelWarn))
	entries, err := scores.Leaderboard(context.Background(), creator)
	if err != nil {
		return err
	}

	color.Bold.Printf("Leaderboard of user %d (%d friends scored)\n", creator, len(entries))

	table := newTable([]string{"Rank", "Friend ID", "Points"})
	for rank, entry := range entries {
		table.Append([]string{
			fmt.Sprintf("%d", rank+1),
			fmt.Sprintf("%d", entry.FriendID),
			fmt.Sprintf("%d", entry.Points),
		})
	}
	table.Render()
	return nil
}

func renderScan(db *badger.DB, prefix string) error {
	color.Bold.Printf("Store scan, prefix %q\n", prefix)
	table := newTable([]string{"Key", "Size", "Value"})

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				detail := string(v)
				// On affiche les 80 premiers caractères pour la lisibilité
				if len(detail) > 80 {
					detail = detail[:80] + "..."
				}
				detail = strings.ReplaceAll(detail, "\n", " ")
				table.Append([]string{
					string(item.Key()),
					fmt.Sprintf("%d", len(v)),
					detail,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
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
	return table
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
