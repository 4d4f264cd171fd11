package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr bool
	}{
		{"200", "00200", false},
		{"00200", "00200", false},
		{" 34010 ", "34010", false},
		{"0", "00000", false},
		{"", "", true},
		{"abc", "", true},
		{"-5", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCode_Int(t *testing.T) {
	assert.Equal(t, 200, Code("00200").Int())
	assert.Equal(t, -1, Code("x1").Int())
	assert.Equal(t, Code("00200"), CodeFromInt(200))
}

func TestSortCodes(t *testing.T) {
	got := SortCodes([]Code{"01000", "00200", "01000", "00010"})
	assert.Equal(t, []Code{"00010", "00200", "01000"}, got)
	assert.Empty(t, SortCodes(nil))
}

func TestCodeSet(t *testing.T) {
	s := NewCodeSet("00300", "00100")
	s.Add("00200")
	assert.True(t, s.Has("00200"))
	assert.False(t, s.Has("00400"))
	assert.Equal(t, []Code{"00100", "00200", "00300"}, s.Sorted())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusOpen, ParseStatus("OPEN"))
	assert.Equal(t, StatusWaitlisted, ParseStatus(" Waitl "))
	assert.Equal(t, StatusFull, ParseStatus("FULL"))
	assert.Equal(t, StatusNewOnly, ParseStatus("NewOnly"))
	assert.Equal(t, StatusUnknown, ParseStatus("reserved"))

	assert.True(t, StatusOpen.Dispatchable())
	assert.True(t, StatusWaitlisted.Dispatchable())
	assert.False(t, StatusFull.Dispatchable())
	assert.False(t, StatusCancelled.Dispatchable())
}

func TestStatusBucket(t *testing.T) {
	a := StatusBucket{}
	a.Add(StatusOpen, "00200")
	b := StatusBucket{}
	b.Add(StatusOpen, "00200")
	b.Add(StatusFull, "00300")

	a.Merge(b)
	assert.Equal(t, 2, a.Len())
	assert.True(t, a[StatusFull].Has("00300"))
}

func TestRecipients(t *testing.T) {
	rs := JoinRecipients([]string{"5550001", ""}, []string{"a@uci.edu"})
	assert.Equal(t, []Recipient{SMS("5550001"), Email("a@uci.edu")}, rs)

	phones, emails := SplitRecipients(rs)
	assert.Equal(t, []string{"5550001"}, phones)
	assert.Equal(t, []string{"a@uci.edu"}, emails)
	assert.Equal(t, "sms:5550001", rs[0].String())

	batch := DispatchBatch{Status: StatusOpen, Entries: []DispatchEntry{{Recipients: rs}, {Recipients: rs[:1]}}}
	assert.Equal(t, 3, batch.RecipientCount())
	assert.True(t, Subscription{Recipients: rs}.Eligible())
	assert.False(t, Subscription{}.Eligible())
}
