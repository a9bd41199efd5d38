package main

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ipastusi/wifitrack/cache"
	"github.com/ipastusi/wifitrack/report"
	"github.com/rivo/tview"
)

// columns

type Column struct {
	name  string
	width int
}

var columns = []Column{
	{"MAC Address", 20},
	{"SSID", 24},
	{"MAC Vendor", 26},
	{"Ch", 5},
	{"Security", 10},
	{"First seen", 12},
	{"Last seen", 12},
	{"Spans", 7},
	{"Present", 9},
}

// ui data structure

type UIEntry struct {
	MAC       string
	SSID      string
	MACVendor string
	Channel   int
	Security  string
	FirstSeen string
	LastSeen  string
	Spans     int
	Present   bool
}

func newUIEntry(details cache.DeviceDetails) UIEntry {
	return UIEntry{
		MAC:       details.Mac,
		SSID:      details.Ssid,
		MACVendor: details.Vendor,
		Channel:   details.Channel,
		Security:  report.ClassifySecurity(details.Security),
		FirstSeen: formatOffset(details.FirstSeen),
		LastSeen:  formatOffset(details.LastSeen),
		Spans:     details.Spans,
		Present:   details.Present,
	}
}

// virtual table: https://github.com/rivo/tview/wiki/VirtualTable

type UIApp struct {
	tview.TableContentReadOnly
	app  *tview.Application
	mu   sync.RWMutex
	data []UIEntry
}

func newUIApp() *UIApp {
	return &UIApp{
		TableContentReadOnly: tview.TableContentReadOnly{},
		app:                  tview.NewApplication(),
		data:                 []UIEntry{},
	}
}

func (uiApp *UIApp) refreshTable(devices []cache.DeviceDetails) {
	defer uiApp.app.Draw()
	entries := make([]UIEntry, 0, len(devices))
	for _, details := range devices {
		entries = append(entries, newUIEntry(details))
	}

	uiApp.mu.Lock()
	uiApp.data = entries
	uiApp.mu.Unlock()
}

func (uiApp *UIApp) GetCell(row int, col int) *tview.TableCell {
	uiApp.mu.RLock()
	entry := uiApp.data[row]
	uiApp.mu.RUnlock()

	switch col {
	case 0:
		return tview.NewTableCell(alignLeft(" "+entry.MAC, columns[0].width-1))
	case 1:
		return tview.NewTableCell(alignLeft(truncate(entry.SSID, columns[1].width-1), columns[1].width-1))
	case 2:
		return tview.NewTableCell(alignLeft(truncate(entry.MACVendor, columns[2].width-1), columns[2].width-1))
	case 3:
		return tview.NewTableCell(alignRight(strconv.Itoa(entry.Channel), columns[3].width-2))
	case 4:
		return tview.NewTableCell(alignLeft(" "+entry.Security, columns[4].width-1))
	case 5:
		return tview.NewTableCell(alignRight(entry.FirstSeen, columns[5].width-2))
	case 6:
		return tview.NewTableCell(alignRight(entry.LastSeen, columns[6].width-2))
	case 7:
		return tview.NewTableCell(alignRight(strconv.Itoa(entry.Spans), columns[7].width-2))
	default:
		present := "no"
		if entry.Present {
			present = "yes"
		}
		return tview.NewTableCell(alignRight(present, columns[8].width-2))
	}
}

func (uiApp *UIApp) GetRowCount() int {
	uiApp.mu.RLock()
	defer uiApp.mu.RUnlock()
	return len(uiApp.data)
}

func (uiApp *UIApp) GetColumnCount() int {
	return len(columns)
}

// load the UI

func loadUI(uiApp *UIApp, ifaceName string, source string, onQuit func()) error {
	headerRow := getHeaderRow()
	table := tview.NewTable().SetEvaluateAllRows(false)
	table.SetContent(uiApp)

	newTextView := func(text string, align int) tview.Primitive {
		return tview.NewTextView().
			SetTextAlign(align).
			SetText(text)
	}

	if ifaceName == "" {
		ifaceName = "default"
	}
	titleBar := fmt.Sprintf(" Wifitrack  |  Interface: %v  |  Source: %v ", ifaceName, source)
	menuBar := " ▲ - Scroll Up  |  ▼ - Scroll Down  |  Q / ESC - Stop scanning"
	grid := tview.NewGrid().
		SetRows(1, 1, 0, 1).
		SetColumns(0, 0, 0, 0).
		SetBorders(true).
		AddItem(newTextView(titleBar, tview.AlignLeft), 0, 0, 1, 4, 0, 0, false).
		AddItem(newTextView(headerRow, tview.AlignLeft), 1, 0, 1, 4, 0, 0, false).
		AddItem(table, 2, 0, 1, 4, 0, 0, true).
		AddItem(newTextView(menuBar, tview.AlignLeft), 3, 0, 1, 4, 0, 0, false)

	grid.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' || event.Key() == tcell.KeyEsc {
			uiApp.app.Stop()
			onQuit()
			return nil
		} else if event.Key() == tcell.KeyLeft || event.Key() == tcell.KeyRight {
			return nil
		}
		return event
	})

	return uiApp.app.SetRoot(grid, true).Run()
}

func getHeaderRow() string {
	var headers string
	for i, col := range columns {
		var header string
		if i == 0 {
			header = " " + col.name
		} else {
			header = col.name
		}
		headers += alignLeft(header, col.width)
	}
	return headers
}

// formatOffset renders an offset since the start of the run as h:mm:ss.
func formatOffset(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}

func alignLeft(text string, len int) string {
	format := fmt.Sprintf("%%-%vs", len)
	return fmt.Sprintf(format, text)
}

func alignRight(text string, len int) string {
	format := fmt.Sprintf("%%%vs", len)
	return fmt.Sprintf(format, text)
}
