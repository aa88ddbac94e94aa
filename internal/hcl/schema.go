package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Tasks     []*taskBlock     `hcl:"task,block"`
	Cleans    []*cleanBlock    `hcl:"clean,block"`
	Serves    []*serveBlock    `hcl:"serve,block"`
	Watches   []*watchBlock    `hcl:"watch,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
}

type taskBlock struct {
	Name        string            `hcl:"name,label"`
	Description string            `hcl:"description,optional"`
	Src         []string          `hcl:"src"`
	Dest        string            `hcl:"dest"`
	Reload      bool              `hcl:"reload,optional"`
	Transforms  []*transformBlock `hcl:"transform,block"`
}

type transformBlock struct {
	Kind    string   `hcl:"kind,label"`
	Options hcl.Body `hcl:",remain"`
}

type cleanBlock struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Paths       []string `hcl:"paths"`
}

type serveBlock struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	BaseDir     string `hcl:"base_dir"`
	Host        string `hcl:"host,optional"`
	Port        *int   `hcl:"port,optional"`
}

type watchBlock struct {
	Name        string       `hcl:"name,label"`
	Description string       `hcl:"description,optional"`
	Rules       []*ruleBlock `hcl:"rule,block"`
}

type ruleBlock struct {
	Patterns []string `hcl:"patterns"`
	Task     string   `hcl:"task,optional"`
	Reload   bool     `hcl:"reload,optional"`
}

type pipelineBlock struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Stages      [][]string `hcl:"stages"`
}
