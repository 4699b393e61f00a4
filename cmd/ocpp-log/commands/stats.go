package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Actions           map[string]int
	Results           map[wire.ResultCode]int
	Links             map[string]*LinkStats
	Forwarded         int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// LinkStats holds statistics for a single link.
type LinkStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	NodeID    string
	RemoteID  string
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Actions:           make(map[string]int),
		Results:           make(map[wire.ResultCode]int),
		Links:             make(map[string]*LinkStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.LinkID != "" {
		link, ok := s.Links[event.LinkID]
		if !ok {
			link = &LinkStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Links[event.LinkID] = link
		}
		link.Events++
		if event.Timestamp.After(link.LastSeen) {
			link.LastSeen = event.Timestamp
		}
		if link.NodeID == "" {
			link.NodeID = event.NodeID
		}
		if link.RemoteID == "" {
			link.RemoteID = event.RemoteID
		}
	}

	switch {
	case event.Error != nil:
		s.Errors++
	case event.Message != nil:
		if event.Message.Action != "" {
			s.Actions[event.Message.Action]++
		}
		if event.Message.ResultCode != nil {
			s.Results[*event.Message.ResultCode]++
		}
	case event.Route != nil:
		if event.Route.Decision == "FORWARD" {
			s.Forwarded++
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== OCPP Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService, log.LayerRouting} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryRoute, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Actions) > 0 {
		fmt.Fprintln(w, "Calls by Action:")
		actions := make([]string, 0, len(stats.Actions))
		for a := range stats.Actions {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		for _, a := range actions {
			fmt.Fprintf(w, "  %-24s %d\n", a+":", stats.Actions[a])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Results) > 0 {
		fmt.Fprintln(w, "Responses by Result:")
		for code := wire.ResultOK; code <= wire.ResultConnectionLost; code++ {
			if count := stats.Results[code]; count > 0 {
				fmt.Fprintf(w, "  %-24s %d\n", code.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	if stats.Forwarded > 0 {
		fmt.Fprintf(w, "Forwarded: %d\n", stats.Forwarded)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Links: %d\n", len(stats.Links))
	if len(stats.Links) > 0 {
		type linkInfo struct {
			id    string
			stats *LinkStats
		}
		links := make([]linkInfo, 0, len(stats.Links))
		for id, ls := range stats.Links {
			links = append(links, linkInfo{id, ls})
		}
		sort.Slice(links, func(i, j int) bool {
			return links[i].stats.FirstSeen.Before(links[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, l := range links {
			duration := l.stats.LastSeen.Sub(l.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %s <-> %s: %d events, duration %s\n",
				shortenLinkID(l.id), orDash(l.stats.NodeID), orDash(l.stats.RemoteID), l.stats.Events, duration)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
