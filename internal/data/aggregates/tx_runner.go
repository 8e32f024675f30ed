package aggregates

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

// TxRunner opens the transaction a ledger write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx runs fn in one gorm transaction under a "ledger.tx" span. The span
// records the error that rolled the transaction back.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "ledger.tx", "transaction runner has nil db", nil)
	}
	ctx, span := observability.StartSpan(ctx, "ledger.tx", attribute.String("db.system", r.db.Dialector.Name()))
	defer func() { observability.EndSpan(span, err) }()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
