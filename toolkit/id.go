package toolkit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Id identifies a session. It is a ulid rendered in uuid form,
// so ids from the same process order by connect time.
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

// ParseId parses the uuid form, as sent in the connection metadata.
func ParseId(idStr string) (id Id, err error) {
	hexStr := strings.ReplaceAll(idStr, "-", "")
	if len(hexStr) != 32 || len(idStr) != 32 && len(idStr) != 36 {
		return id, fmt.Errorf("Invalid connection id: %s", idStr)
	}
	if _, err = hex.Decode(id[:], []byte(hexStr)); err != nil {
		return id, fmt.Errorf("Invalid connection id: %s", idStr)
	}
	return id, nil
}

func (self Id) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", self[0:4], self[4:6], self[6:8], self[8:10], self[10:16])
}

func (self Id) LessThan(b Id) bool {
	return bytes.Compare(self[:], b[:]) < 0
}
