package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"
)

// monitorCmd renders a live terminal dashboard of a running node's
// Connection Registry (C3), polling the admin stats endpoint
// runMonitorServer exposes. This gives the teacher's own (retrieved but
// unused) gizak/termui/v3 + nsf/termbox-go dependency pair a home —
// DESIGN.md "cmd — CLI + fx wiring".
func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Render a live terminal dashboard of a node's connection stats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Monitor endpoint to poll, e.g. http://localhost:9090",
				Value: "http://localhost:9090",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitorTUI(c.String("addr")+"/stats", c.Duration("interval"))
		},
	}
}

func runMonitorTUI(statsURL string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: init terminal: %w", err)
	}
	defer ui.Close()

	title := widgets.NewParagraph()
	title.Title = "chat-core — live connections"
	title.Text = statsURL
	title.SetRect(0, 0, 60, 3)

	usersGauge := widgets.NewGauge()
	usersGauge.Title = "Connected users (capped display at 100)"
	usersGauge.SetRect(0, 3, 60, 6)
	usersGauge.BarColor = ui.ColorGreen

	stats := widgets.NewParagraph()
	stats.Title = "Stats"
	stats.SetRect(0, 6, 60, 11)

	render := func() {
		ui.Render(title, usersGauge, stats)
	}
	render()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: interval}
	uiEvents := ui.PollEvents()

	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}

		case <-ticker.C:
			p, err := fetchStats(client, statsURL)
			if err != nil {
				stats.Text = fmt.Sprintf("poll error: %v", err)
				render()
				continue
			}

			percent := p.TotalUsers
			if percent > 100 {
				percent = 100
			}
			usersGauge.Percent = percent

			stats.Text = fmt.Sprintf(
				"total users:       %d\ntotal connections:  %d\nuptime:             %s",
				p.TotalUsers, p.TotalConnections, p.Uptime,
			)
			render()
		}
	}
}

func fetchStats(client *http.Client, url string) (statsPayload, error) {
	resp, err := client.Get(url)
	if err != nil {
		return statsPayload{}, err
	}
	defer resp.Body.Close()

	var p statsPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return statsPayload{}, err
	}
	return p, nil
}
