package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
)

var _ driven.ToolHandler = (*Clock)(nil)

const clockLayout = "Monday, 2 January 2006 15:04:05 MST"

// Clock answers {{time(zone="Europe/London")}}.
type Clock struct {
	now func() time.Time
}

// NewClock creates a clock tool using the system time.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Name returns "time".
func (c *Clock) Name() string { return "time" }

// Description describes the tool.
func (c *Clock) Description() string {
	return `Current date and time: time(zone="Europe/London"), zone defaults to local time`
}

// Execute formats the current time in the requested zone.
func (c *Clock) Execute(_ context.Context, params map[string]string) (string, error) {
	loc := time.Local
	if zone := strings.TrimSpace(params["zone"]); zone != "" {
		var err error
		if loc, err = time.LoadLocation(zone); err != nil {
			return "", fmt.Errorf("unknown time zone %q", zone)
		}
	}
	return c.now().In(loc).Format(clockLayout), nil
}
