package service

import (
	"context"
	"fmt"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
)

// DefaultFixedOffset is the number of metadata columns before day 1;
// day 1 lives in column D.
const DefaultFixedOffset = 3

// ResolveCoordinate maps a user and date to the cell of a month sheet.
// It reads nothing but its arguments.
func ResolveCoordinate(roster dto.UserRoster, key dto.LogEntryKey, fixedOffset int) (dto.SheetCoordinate, error) {
	if fixedOffset < 0 {
		return dto.SheetCoordinate{}, fmt.Errorf("fixed offset must not be negative, got %d", fixedOffset)
	}
	if !roster.Month.Contains(key.Date) {
		return dto.SheetCoordinate{}, fmt.Errorf("%w: %s is not in sheet %04d-%02d (1..%d)",
			dto.ErrInvalidDate, key.Date, roster.Month.Year, int(roster.Month.Month), roster.Month.LastDay())
	}
	row, ok := roster.RowOf(key.UserID)
	if !ok {
		return dto.SheetCoordinate{}, fmt.Errorf("%w: %q", dto.ErrUserNotFound, key.UserID)
	}
	return dto.SheetCoordinate{Row: row, Column: fixedOffset + key.Date.Day}, nil
}

// Addressor is ResolveCoordinate with trace events.
type Addressor struct {
	observer observe.Observer
}

func NewAddressor(observer observe.Observer) *Addressor {
	return &Addressor{observer: observe.OrNop(observer)}
}

func (a *Addressor) ResolveCoordinate(ctx context.Context, roster dto.UserRoster, key dto.LogEntryKey, fixedOffset int) (dto.SheetCoordinate, error) {
	coord, err := ResolveCoordinate(roster, key, fixedOffset)
	if err != nil {
		a.observer.Observe(ctx, observe.Event{Kind: observe.EventFailure, Key: &key, Err: err})
		return coord, err
	}
	a.observer.Observe(ctx, observe.Event{Kind: observe.EventCoordinateResolved, Key: &key, Coordinate: &coord})
	return coord, nil
}
