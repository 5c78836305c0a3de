package redisx

const ns = "railgo:v1"

func ChannelSchedulesChanged() string {
	return ns + ":schedules:changed"
}
