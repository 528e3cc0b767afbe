package service

import (
	"fmt"

	"github.com/mtlprog/hrscore/internal/domain"
)

// ValidateTransition checks that task may move to newStatus.
func ValidateTransition(task *domain.Task, newStatus domain.TaskStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, newStatus)
	}

	if task.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is already %s", domain.ErrInvalidTransition, task.ID, task.Status)
	}

	if !task.Status.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: task %s is in %s status, cannot move to %s",
			domain.ErrInvalidTransition, task.ID, task.Status, newStatus)
	}

	return nil
}
