package client

import "context"

// Begin starts a transaction using the dialect's statement. While one is
// open, further calls do nothing.
func (c *Client) Begin(ctx context.Context) error {
	if c.inTx {
		return nil
	}
	d, err := c.Dialect(ctx)
	if err != nil {
		return err
	}
	if _, err := c.exec(ctx, d.Begin); err != nil {
		return err
	}
	c.inTx = true
	return nil
}

func (c *Client) Commit(ctx context.Context) error {
	return c.finish(ctx, "COMMIT")
}

func (c *Client) Rollback(ctx context.Context) error {
	return c.finish(ctx, "ROLLBACK")
}

func (c *Client) finish(ctx context.Context, stmt string) error {
	if !c.inTx {
		return nil
	}
	c.inTx = false
	_, err := c.exec(ctx, stmt)
	return err
}

func (c *Client) InTransaction() bool { return c.inTx }
