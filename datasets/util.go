package datasets

import "github.com/rs/zerolog"

func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

// padInto copies ids into row and fills the rest with pad.
func padInto(row, ids []int32, pad int32) {
	n := copy(row, ids)
	for i := n; i < len(row); i++ {
		row[i] = pad
	}
}

// positionsInto writes 1-based positions for the first n slots of row and 0 after.
func positionsInto(row []int32, n int) {
	for i := range row {
		if i < n {
			row[i] = int32(i + 1)
		} else {
			row[i] = 0
		}
	}
}
