package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const debounceMOTDRereadDuration = 2 * time.Second

// textComponent mirrors a single element of the Minecraft chat component
// array used for the status description field.
type textComponent struct {
	Text          string `json:"text"`
	Color         string `json:"color"`
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Underlined    bool   `json:"underlined"`
	Strikethrough bool   `json:"strikethrough"`
}

// PrintMOTD renders a chat component array MOTD to the terminal using the
// same color names the Minecraft client understands, so an operator can
// preview what players will see.
func PrintMOTD(motdJSON string) {
	var components []textComponent
	if err := json.Unmarshal([]byte(motdJSON), &components); err != nil {
		fmt.Println(color.RedString("invalid motd json: %v", err))
		return
	}

	for _, c := range components {
		fmt.Print(renderComponent(c))
	}
	fmt.Println()
}

func renderComponent(c textComponent) string {
	attrs := []color.Attribute{motdColorAttribute(c.Color)}
	if c.Bold {
		attrs = append(attrs, color.Bold)
	}
	if c.Italic {
		attrs = append(attrs, color.Italic)
	}
	if c.Underlined {
		attrs = append(attrs, color.Underline)
	}
	if c.Strikethrough {
		attrs = append(attrs, color.CrossedOut)
	}
	return color.New(attrs...).Sprint(c.Text)
}

func motdColorAttribute(name string) color.Attribute {
	switch name {
	case "black":
		return color.FgBlack
	case "dark_blue":
		return color.FgBlue
	case "dark_green":
		return color.FgGreen
	case "dark_aqua":
		return color.FgCyan
	case "dark_red":
		return color.FgRed
	case "dark_purple":
		return color.FgMagenta
	case "gold":
		return color.FgYellow
	case "dark_gray":
		return color.FgHiBlack
	case "blue":
		return color.FgHiBlue
	case "green":
		return color.FgHiGreen
	case "aqua":
		return color.FgHiCyan
	case "red":
		return color.FgHiRed
	case "light_purple":
		return color.FgHiMagenta
	case "yellow":
		return color.FgHiYellow
	case "white":
		return color.FgHiWhite
	default:
		return color.FgWhite
	}
}

// motdFile is the on-disk schema for --motd-file: separate online and
// offline chat component arrays plus an optional favicon data URL.
type motdFile struct {
	MOTD        json.RawMessage `json:"motd"`
	OfflineMOTD json.RawMessage `json:"offlineMotd"`
	Favicon     string          `json:"favicon"`
}

// MOTDWatcher re-reads an MOTD file on write and hot-swaps the connector's
// reported status fields without restarting the proxy.
type MOTDWatcher struct {
	fileName  string
	connector *Connector
}

func NewMOTDWatcher(fileName string, config *Config) (*MOTDWatcher, error) {
	w := &MOTDWatcher{fileName: fileName}
	if err := w.load(config); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *MOTDWatcher) load(config *Config) error {
	content, err := os.ReadFile(w.fileName)
	if err != nil {
		return errors.Wrap(err, "read motd file")
	}

	var parsed motdFile
	if err := json.Unmarshal(content, &parsed); err != nil {
		return errors.Wrap(err, "parse motd file")
	}

	if len(parsed.MOTD) > 0 {
		config.MOTD = string(parsed.MOTD)
	}
	if len(parsed.OfflineMOTD) > 0 {
		config.OfflineMOTD = string(parsed.OfflineMOTD)
	}
	if parsed.Favicon != "" {
		config.Favicon = parsed.Favicon
	}
	return nil
}

// bindConnector lets the watcher push hot-swapped values after the
// connector, which is constructed after the initial load, exists.
func (w *MOTDWatcher) bindConnector(c *Connector) {
	w.connector = c
}

// Watch blocks, re-reading the MOTD file on writes until ctx is done.
func (w *MOTDWatcher) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.WithError(err).Error("could not create motd file watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.fileName); err != nil {
		logrus.WithError(err).WithField("file", w.fileName).Error("could not watch motd file")
		return
	}

	logrus.WithField("file", w.fileName).Info("watching motd file for changes")

	var debounceTimer *time.Timer
	debounceChan := make(<-chan time.Time)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				if debounceTimer == nil {
					debounceTimer = time.NewTimer(debounceMOTDRereadDuration)
				} else {
					debounceTimer.Reset(debounceMOTDRereadDuration)
				}
				debounceChan = debounceTimer.C
			}

		case <-debounceChan:
			w.reload()

		case <-ctx.Done():
			return
		}
	}
}

func (w *MOTDWatcher) reload() {
	if w.connector == nil {
		return
	}

	cfg := Config{Favicon: w.connector.favicon}
	cfg.MOTD, cfg.OfflineMOTD = w.connector.motdFields()

	if err := w.load(&cfg); err != nil {
		logrus.WithError(err).Error("could not reload motd file")
		return
	}
	w.connector.UpdateMOTD(cfg.MOTD, cfg.OfflineMOTD, cfg.Favicon)
	logrus.Info("reloaded motd file")
}
