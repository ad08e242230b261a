package kernel

import (
	"os/exec"
	"strconv"
	"strings"
)

// findPIDOnPortLsof implements spec §4.J's port-collision probe
// ("implementation-defined: lsof -ti:PORT -sTCP:LISTEN or equivalent"). It
// shells out to lsof, returning the first PID in LISTEN state on port, or
// false if nothing is listening (including when lsof itself is absent —
// the kernel then simply proceeds to bind the port itself and lets that
// bind attempt fail loudly if something really is there).
func findPIDOnPortLsof(port int) (int, bool) {
	out, err := exec.Command("lsof", "-ti:"+strconv.Itoa(port), "-sTCP:LISTEN").Output()
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}
