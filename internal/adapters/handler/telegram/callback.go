package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	actionVote     = "vote"
	actionWithdraw = "withdraw"
)

// callbackData is the payload carried by inline keyboard buttons:
// "vote:<planning id>:<ordinal>" or "withdraw:<planning id>".
type callbackData struct {
	action     string
	planningID int64
	ordinal    int
}

func voteData(planningID int64, ordinal int) string {
	return fmt.Sprintf("%s:%d:%d", actionVote, planningID, ordinal)
}

func withdrawData(planningID int64) string {
	return fmt.Sprintf("%s:%d", actionWithdraw, planningID)
}

func parseCallbackData(data string) (callbackData, error) {
	parts := strings.Split(data, ":")

	var cb callbackData
	switch {
	case len(parts) == 3 && parts[0] == actionVote:
		ordinal, err := strconv.Atoi(parts[2])
		if err != nil || ordinal < 0 {
			return cb, fmt.Errorf("invalid ordinal in callback data %q", data)
		}
		cb.ordinal = ordinal
	case len(parts) == 2 && parts[0] == actionWithdraw:
	default:
		return cb, fmt.Errorf("unknown callback data %q", data)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return cb, fmt.Errorf("invalid planning id in callback data %q", data)
	}
	cb.action = parts[0]
	cb.planningID = id
	return cb, nil
}
