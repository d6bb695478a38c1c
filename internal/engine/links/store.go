package links

import "context"

// Tx is the view of the store inside a View or Update call.
// Lookups return a nil link and nil error when nothing matches.
type Tx interface {
	Get(code string) (*Link, error)
	FindByURL(url string) (*Link, error)
	Insert(link *Link) error
	List() ([]*Link, error)
}

// Store is a transactional code -> link mapping. Changes made inside Update are
// persisted atomically when fn returns nil and discarded otherwise.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

type txChecker struct {
	tx Tx
}

func (c txChecker) ExistsByShortCode(code string) (bool, error) {
	link, err := c.tx.Get(code)
	return link != nil, err
}
