package dateformat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

	tests := []struct {
		name   string
		format string
		tz     string
		want   string
	}{
		{"default", "", "", "2024-03-05 14:07"},
		{"numeric", "dd/MM/yyyy HH:mm:ss", "", "05/03/2024 14:07:09"},
		{"short numeric", "d.M.yy H:mm", "", "5.3.24 14:07"},
		{"names", "EEEE, MMMM d, yyyy", "", "Tuesday, March 5, 2024"},
		{"abbreviated names", "EEE MMM dd", "", "Tue Mar 05"},
		{"twelve hour", "hh:mm a", "", "02:07 PM"},
		{"twelve hour unpadded", "h a", "", "2 PM"},
		{"unknown letters are literal", "yyyy Q3 x", "", "2024 Q3 x"},
		{"quoted literal", "'Signed' yyyy", "", "Signed 2024"},
		{"escaped quote", "HH''mm", "", "14'07"},
		{"doubled quote inside literal", "'o''clock' yyyy", "", "o'clock 2024"},
		{"unterminated literal", "yyyy 'at", "", "2024 at"},
		{"zone applied", "yyyy-MM-dd HH:mm", "Asia/Tokyo", "2024-03-05 23:07"},
		{"unknown zone falls back to UTC", "HH:mm", "Mars/Olympus", "14:07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(ts, tt.format, tt.tz))
		})
	}
}

func TestFormatMidnightAndNoon(t *testing.T) {
	midnight := time.Date(2024, time.January, 1, 0, 30, 0, 0, time.UTC)
	noon := time.Date(2024, time.January, 1, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "12:30 AM", Format(midnight, "hh:mm a", ""))
	assert.Equal(t, "12:30 PM", Format(noon, "hh:mm a", ""))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Location(""))
	assert.Equal(t, time.UTC, Location("nowhere"))
	assert.Equal(t, "Europe/Paris", Location("Europe/Paris").String())
}
