package main

import (
	"chatcode/internal"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// inspect prints the records of a chatcode Badger store. It opens the store
// read-only, so it can run next to a live server.
func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	prefix := flag.String("prefix", "room:", "Key prefix to scan (room:, msg:, msgid:, owner:, user:)")
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("missing -db or BADGER_FILEPATH")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Entity ID", "Namespace", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(*prefix)); it.ValidForPrefix([]byte(*prefix)); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				row := internal.RecordMapper(string(item.Key()), val)
				table.Append([]string{row.Key, row.Type, row.EntityID, row.Namespace, row.Detail})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d record(s) under %q\n", count, *prefix)
}
