package library

import (
	"context"
	"time"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
)

// The current date and time are fixed when an evaluation starts, so these
// functions are stable within it but never cached across evaluations.
func dateTimeFunctions() []*functions.Definition {
	return []*functions.Definition{
		define("current-dateTime", oneDateTime, dynamic, fnCurrentDateTime),
		define("current-date", oneDate, dynamic, fnCurrentDate),
		define("implicit-timezone", oneDayTimeDur, dynamic, fnImplicitTimezone),
	}
}

func currentTime(fc functions.Context) time.Time {
	return fc.CurrentDateTime().In(fc.ImplicitTimezone())
}

func fnCurrentDateTime(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	return item.Of(item.NewDateTime(currentTime(fc))), nil
}

func fnCurrentDate(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	return item.Of(item.NewDate(currentTime(fc))), nil
}

func fnImplicitTimezone(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	_, offset := currentTime(fc).Zone()
	return item.Of(item.NewDayTimeDuration(time.Duration(offset) * time.Second)), nil
}
