package commands

import (
	"context"
	"fmt"
)

// Hello checks the Jenkins credentials by greeting the authenticated user.
type Hello struct {
	Env *Env
}

func (h *Hello) Run(ctx context.Context) error {
	client, err := h.Env.Jenkins()
	if err != nil {
		return err
	}
	me, err := client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	version, err := client.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.Env.Out, "Hello %s from Jenkins %s\n", me.FullName, version)
	return nil
}
