package main

import (
	"chat-rooms/internal"
	"flag"
	"log"
	"os"

	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "room:", "Prefix to scan (user:, board:, room:, msg:)")
	limit := flag.Int("limit", 200, "Maximum number of rows, 0 for all")
	flag.Parse()

	db, err := internal.OpenReadOnly(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	rows, err := internal.Scan(db, *prefix, *limit, internal.DefaultMapper)
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Namespace", "Entity ID", "Timestamp", "Detail"})
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
	for _, row := range rows {
		table.Append([]string{row.Key, row.Namespace, row.EntityID, row.Timestamp, row.Detail})
	}
	table.Render()
}
