package vm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daimatz/gojni/pkg/classfile"
)

// ClassLoader loads .class files by class name. Implementations wrap
// ErrClassNotFound when the class does not exist.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// jmodMagic prefixes the zip payload of a jmod file.
var jmodMagic = []byte("JM\x01\x00")

// ArchiveClassLoader loads classes from a zip archive: a jar, or a JDK jmod
// whose classes live under "classes/".
type ArchiveClassLoader struct {
	Path   string
	prefix string

	mu        sync.Mutex
	cache     map[string]*classfile.ClassFile
	zipReader *zip.Reader
	entries   map[string]*zip.File
}

// NewJmodClassLoader creates a loader for a JDK jmod file.
func NewJmodClassLoader(jmodPath string) *ArchiveClassLoader {
	return &ArchiveClassLoader{Path: jmodPath, prefix: "classes/", cache: make(map[string]*classfile.ClassFile)}
}

// NewJarClassLoader creates a loader for a jar file.
func NewJarClassLoader(jarPath string) *ArchiveClassLoader {
	return &ArchiveClassLoader{Path: jarPath, cache: make(map[string]*classfile.ClassFile)}
}

func (cl *ArchiveClassLoader) ensureZipReader() error {
	if cl.zipReader != nil {
		return nil
	}

	f, err := os.Open(cl.Path)
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", cl.Path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("archive: reading %s: %w", cl.Path, err)
	}
	data = bytes.TrimPrefix(data, jmodMagic)

	cl.zipReader, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("archive: opening zip %s: %w", cl.Path, err)
	}
	cl.entries = make(map[string]*zip.File, len(cl.zipReader.File))
	for _, file := range cl.zipReader.File {
		cl.entries[file.Name] = file
	}
	return nil
}

func (cl *ArchiveClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cf, ok := cl.cache[name]; ok {
		return cf, nil
	}
	if err := cl.ensureZipReader(); err != nil {
		return nil, err
	}

	target := cl.prefix + name + ".class"
	file, ok := cl.entries[target]
	if !ok {
		return nil, fmt.Errorf("archive: %s in %s: %w", name, cl.Path, ErrClassNotFound)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", target, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
	}
	cl.cache[name] = cf
	return cf, nil
}

// UserClassLoader loads user classes from a class path of directories and
// jar files, delegating to the parent first.
type UserClassLoader struct {
	ClassPath []string
	Parent    ClassLoader

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
	jars  map[string]*ArchiveClassLoader
}

// NewUserClassLoader creates a new UserClassLoader. classPath uses the
// platform list separator, like the java -cp flag.
func NewUserClassLoader(classPath string, parent ClassLoader) *UserClassLoader {
	return &UserClassLoader{
		ClassPath: filepath.SplitList(classPath),
		Parent:    parent,
		cache:     make(map[string]*classfile.ClassFile),
		jars:      make(map[string]*ArchiveClassLoader),
	}
}

func (cl *UserClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cf, ok := cl.cache[name]; ok {
		return cf, nil
	}
	if cl.Parent != nil {
		if cf, err := cl.Parent.LoadClass(name); err == nil {
			return cf, nil
		}
	}
	for _, entry := range cl.ClassPath {
		cf, err := cl.loadFrom(entry, name)
		if err != nil {
			continue
		}
		cl.cache[name] = cf
		return cf, nil
	}
	return nil, fmt.Errorf("user: class %s: %w", name, ErrClassNotFound)
}

func (cl *UserClassLoader) loadFrom(entry, name string) (*classfile.ClassFile, error) {
	if strings.HasSuffix(entry, ".jar") || strings.HasSuffix(entry, ".jmod") {
		jar, ok := cl.jars[entry]
		if !ok {
			if strings.HasSuffix(entry, ".jmod") {
				jar = NewJmodClassLoader(entry)
			} else {
				jar = NewJarClassLoader(entry)
			}
			cl.jars[entry] = jar
		}
		return jar.LoadClass(name)
	}
	return classfile.ParseFile(filepath.Join(entry, filepath.FromSlash(name)+".class"))
}

// MapClassLoader holds classes defined at run time, delegating to the parent
// for everything else.
type MapClassLoader struct {
	Parent ClassLoader

	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
}

// NewMapClassLoader creates an empty MapClassLoader.
func NewMapClassLoader(parent ClassLoader) *MapClassLoader {
	return &MapClassLoader{Parent: parent, classes: make(map[string]*classfile.ClassFile)}
}

// Define registers a parsed class. Defining the same name twice fails.
func (cl *MapClassLoader) Define(cf *classfile.ClassFile) error {
	name, err := cf.ClassName()
	if err != nil {
		return err
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.classes[name]; ok {
		return fmt.Errorf("duplicate class definition: %s", name)
	}
	cl.classes[name] = cf
	return nil
}

func (cl *MapClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	cl.mu.RLock()
	cf, ok := cl.classes[name]
	cl.mu.RUnlock()
	if ok {
		return cf, nil
	}
	if cl.Parent != nil {
		return cl.Parent.LoadClass(name)
	}
	return nil, fmt.Errorf("class %s: %w", name, ErrClassNotFound)
}
