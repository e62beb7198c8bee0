package recur

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

// TestAgainstRRuleGo cross-checks expansion against an independent
// implementation for rules where both follow RFC 5545 the same way.
func TestAgainstRRuleGo(t *testing.T) {
	rules := []string{
		"FREQ=DAILY;INTERVAL=3;COUNT=20",
		"FREQ=DAILY;BYMONTH=1;BYDAY=MO,WE;COUNT=15",
		"FREQ=DAILY;BYHOUR=9,17;BYMINUTE=0,30;COUNT=20",
		"FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=30",
		"FREQ=WEEKLY;INTERVAL=2;WKST=SU;BYDAY=TU,TH;COUNT=20",
		"FREQ=MONTHLY;BYDAY=-1FR;COUNT=24",
		"FREQ=MONTHLY;BYMONTHDAY=-1,1,15;COUNT=30",
		"FREQ=MONTHLY;BYDAY=FR;BYMONTHDAY=13;COUNT=10",
		"FREQ=MONTHLY;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=-2;COUNT=12",
		"FREQ=MONTHLY;INTERVAL=18;BYMONTHDAY=10,11,12,13,14,15;COUNT=10",
		"FREQ=MONTHLY;BYYEARDAY=100;COUNT=5",
		"FREQ=MONTHLY;BYYEARDAY=1,-1,60;BYDAY=MO,TU,WE,TH,FR;COUNT=10",
		"FREQ=YEARLY;BYMONTH=1,7;BYDAY=1SU;COUNT=10",
		"FREQ=YEARLY;BYMONTH=3;BYDAY=TU,TH;COUNT=20",
		"FREQ=YEARLY;BYYEARDAY=1,100,200,-1;COUNT=20",
		"FREQ=YEARLY;BYWEEKNO=20;BYDAY=MO;COUNT=10",
		"FREQ=YEARLY;BYDAY=20MO;COUNT=10",
		"FREQ=YEARLY;BYMONTHDAY=1,-1;BYMONTH=2,5;COUNT=10",
		"FREQ=YEARLY;BYMONTH=11;BYDAY=TU;BYMONTHDAY=2,3,4,5,6,7,8;COUNT=6",
		"FREQ=HOURLY;INTERVAL=5;BYHOUR=9,10,11,12,13,14,15,16;COUNT=30",
		"FREQ=MINUTELY;INTERVAL=20;BYHOUR=9,10;COUNT=20",
		"FREQ=SECONDLY;INTERVAL=90;BYMINUTE=0,30;COUNT=10",
	}
	seed := time.Date(1997, 9, 2, 9, 0, 0, 0, time.UTC)

	for _, rule := range rules {
		t.Run(rule, func(t *testing.T) {
			opt, err := rrule.StrToROption(rule)
			require.NoError(t, err)
			opt.Dtstart = seed
			oracle, err := rrule.NewRRule(*opt)
			require.NoError(t, err)
			var want []string
			for _, tm := range oracle.All() {
				want = append(want, tm.UTC().Format("20060102T150405Z"))
			}

			dt := caltime.FromTime(seed)
			got, err := MustParse(rule).Expand(context.Background(), dt, dt, dt.AddDate(60, 0, 0), Budget{})
			require.NoError(t, err)
			assert.Equal(t, want, strs(got))
		})
	}
}
