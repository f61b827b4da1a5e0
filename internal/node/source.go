package node

// Display names of the two source node flavours.
const (
	WatchedDirName   = "WatchedDir"
	UnwatchedDirName = "UnwatchedDir"
)

// WatchedDir is a source directory whose changes should trigger rebuilds.
// A plain string in a graph is shorthand for a WatchedDir.
type WatchedDir struct {
	Path       string
	Annotation string
	stack      string
}

// NewWatchedDir returns a watched source directory node.
func NewWatchedDir(path, annotation string) *WatchedDir {
	return &WatchedDir{Path: path, Annotation: annotation, stack: captureStack(1)}
}

// NodeInfo implements Node.
func (d WatchedDir) NodeInfo() Info {
	return Info{
		Type:               SourceType,
		Name:               WatchedDirName,
		Annotation:         d.Annotation,
		InstantiationStack: d.stack,
		SourceDirectory:    d.Path,
		Watched:            true,
	}
}

// UnwatchedDir is a source directory that is assumed not to change while the
// builder is alive, e.g. vendored third-party code.
type UnwatchedDir struct {
	Path       string
	Annotation string
	stack      string
}

// NewUnwatchedDir returns an unwatched source directory node.
func NewUnwatchedDir(path, annotation string) *UnwatchedDir {
	return &UnwatchedDir{Path: path, Annotation: annotation, stack: captureStack(1)}
}

// NodeInfo implements Node.
func (d UnwatchedDir) NodeInfo() Info {
	return Info{
		Type:               SourceType,
		Name:               UnwatchedDirName,
		Annotation:         d.Annotation,
		InstantiationStack: d.stack,
		SourceDirectory:    d.Path,
		Watched:            false,
	}
}

// pathInfo is the Info a bare string path stands for.
func pathInfo(path string) Info {
	return Info{
		Type:            SourceType,
		Name:            WatchedDirName,
		SourceDirectory: path,
		Watched:         true,
	}
}
