package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

func Test_trapNoRowsErr(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantSentinel bool
	}{
		{name: "no rows", err: sql.ErrNoRows, wantSentinel: true},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "getting user"), wantSentinel: true},
		{name: "malformed uuid", err: &pq.Error{Code: invalidTextRepr}, wantSentinel: true},
		{name: "wrapped malformed uuid", err: errors.Wrap(&pq.Error{Code: invalidTextRepr}, "getting user"), wantSentinel: true},
		{name: "unique violation passes through", err: &pq.Error{Code: uniqueViolation}, wantSentinel: false},
		{name: "other error passes through", err: errors.New("connection reset"), wantSentinel: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := trapNoRowsErr(tt.err, user.ErrNotFound, "getting user")
			if tt.wantSentinel {
				if err != user.ErrNotFound {
					t.Errorf("trapNoRowsErr() = %v; want ErrNotFound", err)
				}
				return
			}
			if err == user.ErrNotFound {
				t.Error("trapNoRowsErr() = ErrNotFound; want the original error wrapped")
			}
			if errors.Cause(err) != errors.Cause(tt.err) {
				t.Errorf("trapNoRowsErr() cause = %v; want %v", errors.Cause(err), errors.Cause(tt.err))
			}
		})
	}
}
