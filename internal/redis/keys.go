package redisx

import "fmt"

const ns = "bookit:v1"

func KeyExperienceList() string {
	return ns + ":experiences:list"
}

func KeyExperienceSlots(experienceID int64) string {
	return fmt.Sprintf("%s:experience:%d:slots", ns, experienceID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelSlotsChanged() string {
	return ns + ":slots:changed"
}
