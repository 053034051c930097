package config

import (
	"fmt"
	"strconv"
	"strings"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/pkg/utils"
)

// RunSpec turns a validated configuration into the run the pipeline
// executes. Relative outfiles are placed under OutputDir.
func (c *Config) RunSpec() model.RunSpec {
	om := utils.NewOutputManager(c.OutputDir)

	spec := model.RunSpec{
		OutFile:    om.Resolve(c.OutFile),
		OutputDir:  c.OutputDir,
		Sessions:   c.Sessions,
		Workers:    c.Workers,
		QueueSize:  c.QueueSize,
		JobStagger: c.JobStagger,
		Flush: model.FlushSpec{
			SoftLimit: c.Flush.SoftLimit,
			HardLimit: c.Flush.HardLimit,
			Wait:      c.Flush.Wait,
		},
		Jobs: make([]model.JobSpec, 0, len(c.Work)),
	}
	if c.ProgressInterval != nil {
		spec.ProgressInterval = *c.ProgressInterval
	}

	for i, w := range c.Work {
		truncate := c.Truncate
		if w.Truncate != nil {
			truncate = *w.Truncate
		}
		src := c.sourceFor(w)
		dst := c.loaderFor(w)
		port, _ := strconv.Atoi(dst.Port)

		spec.Jobs = append(spec.Jobs, model.JobSpec{
			ID:       jobID(i, w),
			Query:    w.Query,
			Target:   w.Target,
			OutFile:  om.Resolve(w.OutFile),
			Truncate: truncate,
			Source: model.SourceSpec{
				Driver:      src.Driver,
				DSN:         src.DSN,
				Database:    src.Database,
				Username:    src.Username,
				Password:    src.Password,
				FetchSize:   src.FetchSize,
				LOBPrefetch: src.LOBPrefetch,
				SessionSQL:  src.SessionSQL,
			},
			Loader: model.LoaderSpec{
				Host:     dst.Host,
				Port:     port,
				Database: dst.Database,
				Username: dst.Username,
				Password: dst.Password,
			},
		})
	}
	return spec
}

// jobID is the work item's id, or its position and target.
func jobID(i int, w WorkConfig) string {
	if w.ID != "" {
		return w.ID
	}
	return fmt.Sprintf("%03d-%s", i+1, strings.ToLower(strings.TrimSpace(w.Target)))
}

// sourceFor merges the work item's source settings over the global ones.
func (c *Config) sourceFor(w WorkConfig) SourceConfig {
	s := c.Source
	o := w.Source
	if o.Driver != "" {
		s.Driver = o.Driver
	}
	if o.DSN != "" {
		s.DSN = o.DSN
	}
	if o.Database != "" {
		s.Database = o.Database
	}
	if o.Username != "" {
		s.Username = o.Username
	}
	if o.Password != "" {
		s.Password = o.Password
	}
	if o.FetchSize != 0 {
		s.FetchSize = o.FetchSize
	}
	if o.LOBPrefetch != 0 {
		s.LOBPrefetch = o.LOBPrefetch
	}
	if len(o.SessionSQL) > 0 {
		s.SessionSQL = o.SessionSQL
	}
	return s
}

// loaderFor merges the work item's target settings over the global ones.
func (c *Config) loaderFor(w WorkConfig) TargetConfig {
	t := c.Target
	o := w.Loader
	if o.Host != "" {
		t.Host = o.Host
	}
	if o.Port != "" {
		t.Port = o.Port
	}
	if o.Database != "" {
		t.Database = o.Database
	}
	if o.Username != "" {
		t.Username = o.Username
	}
	if o.Password != "" {
		t.Password = o.Password
	}
	return t
}
