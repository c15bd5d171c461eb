package main

import (
	"chatcode/infrastructure/grpc/rpc"
	"io"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
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

func renderMessages(w io.Writer, items []rpc.WatchedItem) {
	table := newTable(w, []string{"At", "Author", "Message", "Flags"})
	for _, item := range items {
		author := item.String("author")
		if item.Mine {
			author = color.Cyan.Sprint(author + " (me)")
		}
		table.Append([]string{item.Seq.Local().Format("15:04:05"), author, item.String("content"), flags(item)})
	}
	table.Render()
}

func renderRooms(w io.Writer, items []rpc.WatchedItem) {
	table := newTable(w, []string{"Created", "Room", "Name"})
	for _, item := range items {
		table.Append([]string{item.Seq.Local().Format("2006-01-02 15:04"), item.ID, item.String("name")})
	}
	table.Render()
}

func flags(item rpc.WatchedItem) string {
	var out string
	if edited, _ := item.Payload["edited"].(bool); edited {
		out += "edited "
	}
	if censored, _ := item.Payload["censored"].(bool); censored {
		out += color.Yellow.Sprint("censored")
	}
	return out
}
