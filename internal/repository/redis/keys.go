package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "railgo:v1"

func KeyScheduleSummary(scheduleID uuid.UUID) string {
	return fmt.Sprintf("%s:schedule:%s:summary", ns, scheduleID)
}

func KeyScheduleAvailability(scheduleID uuid.UUID) string {
	return fmt.Sprintf("%s:schedule:%s:availability", ns, scheduleID)
}
