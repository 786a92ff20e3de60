package port

import (
	"context"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
)

type Notifier interface {
	// Notify surfaces a notice to the end user
	Notify(ctx context.Context, notice domain.Notice) error
}
