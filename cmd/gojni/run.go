package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/jni"
	"github.com/daimatz/gojni/pkg/vm"
)

type runFlags struct {
	nativeLibs []string
	classPath  string
	checkJNI   bool
	verboseJNI bool
	jniVersion string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <Class.class> [args...]",
		Short: "Execute the main method of a class file",
		Long: `Execute the static main(String[]) method of a class file.

The directory holding the class file, adjusted for its package, is put on the
class path. Native methods are resolved against the libraries given with
--native-lib and native_libraries, in load order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyRunFlags(cmd, &f)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runClass(cmd, args[0], args[1:])
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&f.nativeLibs, "native-lib", nil, "load a native library before main runs (repeatable)")
	flags.StringVar(&f.classPath, "classpath", "", "additional class path entries")
	flags.BoolVar(&f.checkJNI, "check-jni", false, "make JNI contract violations fatal")
	flags.BoolVar(&f.verboseJNI, "verbose-jni", false, "trace native method linking")
	flags.StringVar(&f.jniVersion, "jni-version", "", "JNI version the main thread negotiates")
	return cmd
}

// applyRunFlags overrides the configuration with the flags given.
func (a *app) applyRunFlags(cmd *cobra.Command, f *runFlags) {
	flags := cmd.Flags()
	cfg := a.cfg
	cfg.NativeLibraries = append(cfg.NativeLibraries, f.nativeLibs...)
	if flags.Changed("classpath") {
		cfg.ClassPath = f.classPath
	}
	if flags.Changed("check-jni") {
		cfg.CheckJNI = f.checkJNI
	}
	if flags.Changed("verbose-jni") {
		cfg.VerboseJNI = f.verboseJNI
	}
	if flags.Changed("jni-version") {
		cfg.JNIVersion = f.jniVersion
	}
}

func (a *app) runClass(cmd *cobra.Command, path string, args []string) error {
	cfg := a.cfg
	root, className, err := locateClass(path)
	if err != nil {
		return err
	}
	classPath := root
	if cfg.ClassPath != "" {
		classPath += string(os.PathListSeparator) + cfg.ClassPath
	}

	var boot vm.ClassLoader
	if jmod := cfg.JmodPath(); jmod != "" {
		boot = vm.NewJmodClassLoader(jmod)
	} else {
		a.logger.Warn("java.base.jmod not found, only built-in classes are available; set JAVA_HOME or java_base_jmod")
	}
	if cfg.VerboseJNI && a.logger.GetLevel() > log.InfoLevel {
		a.logger.SetLevel(log.InfoLevel)
	}

	opts := []jni.Option{
		jni.WithClassLoader(vm.NewUserClassLoader(classPath, boot)),
		jni.WithVersion(cfg.Version()),
		jni.WithCheckJNI(cfg.CheckJNI),
		jni.WithVerbose(cfg.VerboseJNI),
		jni.WithLogger(a.logger),
		jni.WithStdout(cmd.OutOrStdout()),
		jni.WithStderr(cmd.ErrOrStderr()),
	}
	libs, err := openLibraries(cfg.NativeLibraries)
	if err != nil {
		return err
	}
	for _, lib := range libs {
		opts = append(opts, jni.WithLibrary(lib))
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	jvm, env, err := jni.CreateJavaVM(opts...)
	if err != nil {
		a.closeLibraries(libs)
		return err
	}
	defer jvm.DestroyJavaVM()

	rt := jvm.Runtime()
	err = rt.RunMain(env.Thread(), className, args)
	var exc *vm.JavaException
	if errors.As(err, &exc) {
		if merr := rt.Materialize(env.Thread(), exc); merr != nil {
			return fmt.Errorf("uncaught %s: %w", exc.ClassName, merr)
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Exception in thread \"main\" ")
		rt.PrintThrowable(exc.Object)
		return &ExitError{Code: 1, Err: fmt.Errorf("uncaught exception in thread \"main\"")}
	}
	if n := jvm.Violations(); n > 0 {
		a.logger.Warn("JNI contract violations", "count", n)
	}
	return err
}

// nativeLibrary is a library the run command opened and must close.
type nativeLibrary interface {
	jni.Library
	Close() error
}

var openLibrary = func(path string) (nativeLibrary, error) {
	lib, err := jni.OpenSharedLibrary(path)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// openLibraries opens every path in order. On failure the libraries opened
// so far are closed again.
func openLibraries(paths []string) ([]nativeLibrary, error) {
	libs := make([]nativeLibrary, 0, len(paths))
	for _, p := range paths {
		lib, err := openLibrary(p)
		if err != nil {
			for _, l := range libs {
				l.Close()
			}
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// closeLibraries closes libraries a VM never took over. Closing one the
// VM already unloaded does nothing.
func (a *app) closeLibraries(libs []nativeLibrary) {
	for _, l := range libs {
		if err := l.Close(); err != nil {
			a.logger.Warn("closing native library", "library", l.Name(), "err", err)
		}
	}
}

// locateClass reads the class file at path and returns the class path root
// it belongs under, along with its internal name.
func locateClass(path string) (string, string, error) {
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return "", "", err
	}
	name, err := cf.ClassName()
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	pkg := filepath.Dir(filepath.FromSlash(name))
	if pkg == "." {
		return dir, name, nil
	}
	if dir != pkg && !strings.HasSuffix(dir, string(filepath.Separator)+pkg) {
		return "", "", fmt.Errorf("%s: class %s must be in a directory named %s", path, strings.ReplaceAll(name, "/", "."), pkg)
	}
	root := strings.TrimSuffix(strings.TrimSuffix(dir, pkg), string(filepath.Separator))
	if root == "" {
		root = "."
	}
	return root, name, nil
}
