package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a plan file may contain.
type fileRoot struct {
	Settings []*settingsBlock `hcl:"settings,block"`
	Remotes  []*remoteBlock   `hcl:"remote,block"`
	Tasks    []*taskBlock     `hcl:"task,block"`
}

type settingsBlock struct {
	Workers      *int      `hcl:"workers,optional"`
	Buffer       *int      `hcl:"buffer,optional"`
	PollInterval *string   `hcl:"poll_interval,optional"`
	DefRange     hcl.Range `hcl:",def_range"`
}

type remoteBlock struct {
	Name               string    `hcl:"name,label"`
	Transport          string    `hcl:"transport,optional"`
	URL                string    `hcl:"url"`
	Credential         string    `hcl:"credential,optional"`
	Namespace          string    `hcl:"namespace,optional"`
	Timeout            string    `hcl:"timeout,optional"`
	InsecureSkipVerify bool      `hcl:"insecure_skip_verify,optional"`
	DefRange           hcl.Range `hcl:",def_range"`
}

type taskBlock struct {
	Kind      string     `hcl:"kind,label"`
	Name      string     `hcl:"name,label"`
	DependsOn []string   `hcl:"depends_on,optional"`
	Arguments *argsBlock `hcl:"arguments,block"`
	DefRange  hcl.Range  `hcl:",def_range"`
}

type argsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
