package util

import (
	"encoding/json"
	"fmt"
	"time"
)

// Seconds is a duration written to JSON as "12.34s".
type Seconds time.Duration

func (s Seconds) String() string {
	return fmt.Sprintf("%.2fs", time.Duration(s).Seconds())
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Seconds) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return err
	}
	*s = Seconds(d)
	return nil
}
