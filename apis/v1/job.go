// Package v1 defines the typed YAML surface of pack jobs. Fields tagged
// `template` take ${VAR} expansion before the job runs.
package v1

type PackJob struct {
	Kind     string      `yaml:"kind" json:"kind" validate:"required,eq=PackJob"`
	Metadata Metadata    `yaml:"metadata" json:"metadata" validate:"required"`
	Spec     PackJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required" template:""`
}

type PackJobSpec struct {
	// Inputs are collected concurrently and packed as archive entries.
	Inputs []Input `yaml:"inputs,omitempty" json:"inputs,omitempty" validate:"dive"`

	// Workbook, when set, is generated into .xlsx package parts and packed
	// alongside the inputs.
	Workbook *WorkbookSpec `yaml:"workbook,omitempty" json:"workbook,omitempty"`

	Output OutputSpec `yaml:"output" json:"output" validate:"required"`

	// FailFast aborts the job on the first input that fails to collect.
	// Default is true; false logs the failure and packs the rest.
	FailFast *bool `yaml:"failFast,omitempty" json:"failFast,omitempty"`
}

// Input names one archive entry and the source producing its bytes (exactly
// one of the source fields should be set).
type Input struct {
	// As is the entry path inside the archive. Required for http and exec
	// sources; file sources default to the matched path.
	As string `yaml:"as,omitempty" json:"as,omitempty" template:""`

	File *FileInput `yaml:"file,omitempty" json:"file,omitempty"`
	HTTP *HTTPInput `yaml:"http,omitempty" json:"http,omitempty"`
	Exec *ExecInput `yaml:"exec,omitempty" json:"exec,omitempty"`
}

// FileInput collects local files matching a glob pattern.
type FileInput struct {
	Glob string `yaml:"glob" json:"glob" validate:"required" template:""`
}

// HTTPInput collects the response body of a GET request.
type HTTPInput struct {
	URL     string            `yaml:"url" json:"url" validate:"required,url" template:""`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Auth    *HTTPAuth         `yaml:"auth,omitempty" json:"auth,omitempty"`

	// Timeout in seconds. Default 30.
	Timeout *int `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,min=1"`
}

type HTTPAuth struct {
	Basic *HTTPBasicAuth `yaml:"basic,omitempty" json:"basic,omitempty"`
}

type HTTPBasicAuth struct {
	Username string `yaml:"username" json:"username" template:""`
	Password string `yaml:"password" json:"password" template:""`
}

// ExecInput collects the stdout of a command.
type ExecInput struct {
	Program []string          `yaml:"program" json:"program" validate:"required,min=1" template:""`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`

	WorkingDir *string `yaml:"workingDir,omitempty" json:"workingDir,omitempty" template:""`

	// Timeout as a Go duration string. Default "30s".
	Timeout *string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// WorkbookSpec declares an inline workbook built from literal rows.
type WorkbookSpec struct {
	Title   string      `yaml:"title,omitempty" json:"title,omitempty" template:""`
	Creator string      `yaml:"creator,omitempty" json:"creator,omitempty" template:""`
	Sheets  []SheetSpec `yaml:"sheets" json:"sheets" validate:"required,min=1,dive"`
}

type SheetSpec struct {
	Name string `yaml:"name" json:"name" validate:"required" template:""`

	// Rows are written top-down starting at A1; cells may be strings,
	// numbers, or booleans.
	Rows [][]any `yaml:"rows,omitempty" json:"rows,omitempty"`
}

// OutputSpec configures how and where the archive is written.
type OutputSpec struct {
	// Path is the archive filename, also used as the object key for remote
	// sinks.
	Path string `yaml:"path" json:"path" validate:"required" template:""`

	Compression *CompressionSpec `yaml:"compression,omitempty" json:"compression,omitempty"`

	// Sink defaults to stdout when unset.
	Sink *SinkSpec `yaml:"sink,omitempty" json:"sink,omitempty"`
}

// CompressionSpec tunes the parallel codec.
type CompressionSpec struct {
	// Method is one of store, deflate, zstd. Default deflate.
	Method string `yaml:"method,omitempty" json:"method,omitempty" validate:"omitempty,oneof=store deflate zstd"`

	// Level is the 0-9 compression level. Default favors speed.
	Level *int `yaml:"level,omitempty" json:"level,omitempty" validate:"omitempty,min=0,max=9"`

	// Threads is the worker count. Default is the hardware concurrency.
	Threads int `yaml:"threads,omitempty" json:"threads,omitempty" validate:"omitempty,min=1"`

	// Chunking splits oversized entries into _partN pieces. Default true
	// for raw inputs.
	Chunking *bool `yaml:"chunking,omitempty" json:"chunking,omitempty"`
}

// SinkSpec configures the delivery destination (one of the fields should be
// set).
type SinkSpec struct {
	Stdout     *StdoutSinkSpec     `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Filesystem *FilesystemSinkSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	S3         *S3SinkSpec         `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// StdoutSinkSpec streams the archive to stdout (no options currently).
type StdoutSinkSpec struct{}

// FilesystemSinkSpec writes the archive under a directory.
type FilesystemSinkSpec struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty" template:""`
}

// S3SinkSpec uploads the archive to S3-compatible object storage.
type S3SinkSpec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	ForcePathStyle bool           `yaml:"forcePathStyle,omitempty" json:"forcePathStyle,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"accessKeyId" json:"accessKeyId" template:""`
	SecretAccessKey string `yaml:"secretAccessKey" json:"secretAccessKey" template:""`
}
