// Package schema loads message descriptors from .proto sources or serialized
// descriptor sets, and exposes the descriptor queries used by generation:
// lookup of messages by full name, field comments, schema source text, and
// the FileDescriptorSet and message indexes of a message.
package schema

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bufbuild/protocompile"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Index of loaded files and their messages.
type Index struct {
	files    []protoreflect.FileDescriptor
	messages map[protoreflect.FullName]protoreflect.MessageDescriptor
	// Original source text of files, keyed on file path.
	sources map[string]string
}

// LoadFile compiles the .proto file at |path| of |fs|. Imports are resolved
// relative to the file's directory, then to each of |importPaths|, and then
// to the well-known types bundled with the compiler.
func LoadFile(ctx context.Context, fs afero.Fs, path string, importPaths ...string) (*Index, error) {
	var src, err = afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "reading proto file")
	}
	var name = filepath.Base(path)

	return compile(ctx, name, string(src), &protocompile.SourceResolver{
		ImportPaths: append([]string{filepath.Dir(path)}, importPaths...),
		Accessor: func(path string) (io.ReadCloser, error) {
			return fs.Open(path)
		},
	})
}

// LoadSource compiles .proto |source| having file path |name|. Its imports
// may be provided by |deps|, a map of file path to source text.
func LoadSource(ctx context.Context, name, source string, deps map[string]string) (*Index, error) {
	var srcs = map[string]string{name: source}
	for n, s := range deps {
		srcs[n] = s
	}
	return compile(ctx, name, source, &protocompile.SourceResolver{
		Accessor: protocompile.SourceAccessorFromMap(srcs),
	})
}

// LoadDescriptorSet builds an Index from a serialized FileDescriptorSet,
// such as produced by `protoc --include_source_info --descriptor_set_out`.
// Comments are available only if the set includes source info, and the
// Index has no schema source text.
func LoadDescriptorSet(b []byte) (*Index, error) {
	var set = new(descriptorpb.FileDescriptorSet)
	if err := proto.Unmarshal(b, set); err != nil {
		return nil, errors.Wrap(err, "decoding FileDescriptorSet")
	}
	var files, err = protodesc.NewFiles(set)
	if err != nil {
		return nil, errors.Wrap(err, "building FileDescriptorSet files")
	}

	var x = newIndex()
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		x.add(fd)
		return true
	})
	return x, nil
}

func compile(ctx context.Context, name, source string, resolver protocompile.Resolver) (*Index, error) {
	var compiler = protocompile.Compiler{
		Resolver:       protocompile.WithStandardImports(resolver),
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	var files, err = compiler.Compile(ctx, name)
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling %s", name)
	}

	var x = newIndex()
	for _, fd := range files {
		x.add(fd)
	}
	x.sources[name] = source

	log.WithFields(log.Fields{
		"file":     name,
		"messages": len(x.messages),
	}).Debug("compiled schema")

	return x, nil
}

func newIndex() *Index {
	return &Index{
		messages: make(map[protoreflect.FullName]protoreflect.MessageDescriptor),
		sources:  make(map[string]string),
	}
}

func (x *Index) add(fd protoreflect.FileDescriptor) {
	for _, f := range x.files {
		if f.Path() == fd.Path() {
			return
		}
	}
	for i := 0; i != fd.Imports().Len(); i++ {
		x.add(fd.Imports().Get(i).FileDescriptor)
	}
	x.files = append(x.files, fd)
	x.addMessages(fd.Messages())
}

func (x *Index) addMessages(mds protoreflect.MessageDescriptors) {
	for i := 0; i != mds.Len(); i++ {
		var md = mds.Get(i)
		if md.IsMapEntry() {
			continue
		}
		x.messages[md.FullName()] = md
		x.addMessages(md.Messages())
	}
}

// Message returns the MessageDescriptor having full |name|.
func (x *Index) Message(name string) (protoreflect.MessageDescriptor, error) {
	var md, ok = x.messages[protoreflect.FullName(strings.TrimPrefix(name, "."))]
	if !ok {
		return nil, errors.Errorf("message type %q not found (have %s)",
			name, strings.Join(x.Messages(), ", "))
	}
	return md, nil
}

// Messages returns the sorted full names of indexed messages.
func (x *Index) Messages() []string {
	var out = make([]string, 0, len(x.messages))
	for n := range x.messages {
		out = append(out, string(n))
	}
	sort.Strings(out)
	return out
}

// Source returns the original .proto source text of the file defining
// |md|, if it's known.
func (x *Index) Source(md protoreflect.MessageDescriptor) (string, bool) {
	var s, ok = x.sources[md.ParentFile().Path()]
	return s, ok
}

// Comment returns the leading and trailing comments attached to |d|,
// or empty if |d| has no comments or its file has no source info.
func Comment(d protoreflect.Descriptor) string {
	var loc = d.ParentFile().SourceLocations().ByDescriptor(d)
	return strings.TrimSpace(loc.LeadingComments + "\n" + loc.TrailingComments)
}

// FileDescriptorSet returns the file defining |md| and its transitive
// dependencies, where every file follows its dependencies.
func FileDescriptorSet(md protoreflect.MessageDescriptor) *descriptorpb.FileDescriptorSet {
	var set = new(descriptorpb.FileDescriptorSet)
	var seen = make(map[string]bool)

	var visit func(protoreflect.FileDescriptor)
	visit = func(fd protoreflect.FileDescriptor) {
		if seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true

		for i := 0; i != fd.Imports().Len(); i++ {
			visit(fd.Imports().Get(i).FileDescriptor)
		}
		set.File = append(set.File, protodesc.ToFileDescriptorProto(fd))
	}
	visit(md.ParentFile())

	return set
}

// MessageOf builds a registry from a FileDescriptorSet produced by
// FileDescriptorSet, and returns the MessageDescriptor of |name| therein.
func MessageOf(set *descriptorpb.FileDescriptorSet, name string) (protoreflect.MessageDescriptor, error) {
	var files, err = protodesc.NewFiles(set)
	if err != nil {
		return nil, errors.Wrap(err, "building FileDescriptorSet files")
	}
	d, err := files.FindDescriptorByName(protoreflect.FullName(name))
	if err == protoregistry.NotFound {
		return nil, errors.Errorf("message type %q not found in FileDescriptorSet", name)
	} else if err != nil {
		return nil, err
	}
	var md, ok = d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, errors.Errorf("%q is not a message type", name)
	}
	return md, nil
}

// MessageIndexes returns the path of declaration indexes leading to |md|,
// from its file's top-level messages through its nested parents.
func MessageIndexes(md protoreflect.MessageDescriptor) []int {
	var out []int
	for d := protoreflect.Descriptor(md); ; d = d.Parent() {
		var m, ok = d.(protoreflect.MessageDescriptor)
		if !ok {
			break
		}
		out = append([]int{m.Index()}, out...)
	}
	return out
}
