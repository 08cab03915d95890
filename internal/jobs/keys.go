package jobs

import "fmt"

const queueKey = "cards:queue"

func jobKey(jobID string) string {
	return fmt.Sprintf("cards:job:%s", jobID)
}

func jobPayloadKey(jobID string) string {
	return fmt.Sprintf("cards:job:%s:payload", jobID)
}
