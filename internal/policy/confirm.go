package policy

import (
	"fmt"
	"strings"
)

// RequireConfirmation enforces explicit confirm=true for tools flagged as
// needing it, and for issue.update calls that resolve or discard an issue.
func RequireConfirmation(toolName string, confirmationRequired bool, args map[string]any) error {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return nil
	}

	required, reason := confirmationRequirement(name, confirmationRequired, args)
	if !required {
		return nil
	}
	if hasConfirmTrue(args) {
		return nil
	}
	return fmt.Errorf("tool %s requires confirm=true %s", name, reason)
}

func confirmationRequirement(toolName string, confirmationRequired bool, args map[string]any) (bool, string) {
	if confirmationRequired {
		return true, "before it makes changes"
	}
	if toolName != "issue.update" {
		return false, ""
	}

	statusRaw, ok := args["status"]
	if !ok {
		return false, ""
	}
	status, ok := statusRaw.(string)
	if !ok {
		return false, ""
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "resolved", "ignored":
		return true, fmt.Sprintf("when status=%s", strings.TrimSpace(status))
	}
	return false, ""
}

func hasConfirmTrue(args map[string]any) bool {
	if args == nil {
		return false
	}
	value, ok := args["confirm"]
	if !ok {
		return false
	}
	confirm, ok := value.(bool)
	return ok && confirm
}
