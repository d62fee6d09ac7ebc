package api

import (
	"io"
	"log/slog"
	"strconv"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
