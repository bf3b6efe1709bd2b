package daylog

import "context"

// FindRow scans the user and date columns top to bottom and returns the
// 1-based index of the first row matching both. Short rows never match.
func FindRow(ctx context.Context, t Table, userID, date string) (int, bool, error) {
	rows, err := t.Rows(ctx, ColUser, ColDate)
	if err != nil {
		return 0, false, err
	}
	for i, row := range rows {
		if len(row) >= 2 && row[0] == userID && row[1] == date {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}
