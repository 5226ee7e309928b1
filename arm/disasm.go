package arm

import (
	"fmt"
	"strings"
)

var sprintf = fmt.Sprintf

var regNames = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "fp", "ip", "sp", "lr", "pc",
}

func regName(i int) string {
	return regNames[i&15]
}

func regListText(list uint16) string {
	var parts []string
	for i := 0; i < 16; i++ {
		if list&(1<<i) != 0 {
			parts = append(parts, regNames[i])
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func signText(up bool) string {
	if up {
		return ""
	}
	return "-"
}
