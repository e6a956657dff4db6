package api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MJE43/gridiron-dice/internal/play"
)

const maxTeamNameLen = 32

// ValidateCreateMatchRequest checks the optional team names
func ValidateCreateMatchRequest(req *CreateMatchRequest) error {
	req.UserTeam = strings.TrimSpace(req.UserTeam)
	req.NPCTeam = strings.TrimSpace(req.NPCTeam)
	if utf8.RuneCountInString(req.UserTeam) > maxTeamNameLen {
		return fmt.Errorf("user_team too long (max %d characters)", maxTeamNameLen)
	}
	if utf8.RuneCountInString(req.NPCTeam) > maxTeamNameLen {
		return fmt.Errorf("npc_team too long (max %d characters)", maxTeamNameLen)
	}
	return nil
}

// ValidatePlayRequest checks the request shape. Die ranges and the d10
// requirement are the resolver's call.
func ValidatePlayRequest(req *PlayRequest) (play.Dice, error) {
	if req.D6 == nil {
		return play.Dice{}, fmt.Errorf("d6 is required")
	}
	return play.Dice{D6: *req.D6, D10: req.D10, D20: req.D20}, nil
}

// ValidateChaosRequest checks that a d20 was sent
func ValidateChaosRequest(req *ChaosRequest) (int, error) {
	if req.D20 == nil {
		return 0, fmt.Errorf("d20 is required")
	}
	return *req.D20, nil
}
