package finder

import "github.com/CageChen/layerhub/internal/entry"

func (f *Finder) one(name string, typ entry.Type, dir Direction) (Match, bool) {
	return f.Resolve(Query{Name: name, Type: typ, Direction: dir, Mode: ModeOne}).First()
}

func (f *Finder) all(name string, typ entry.Type, dir Direction) []Match {
	return f.Resolve(Query{Name: name, Type: typ, Direction: dir, Mode: ModeAll}).Matches
}

// Find returns the first file or directory called name.
func (f *Finder) Find(name string) (Match, bool) {
	return f.one(name, entry.TypeAny, Forward)
}

// FindReversed returns the last file or directory called name.
func (f *Finder) FindReversed(name string) (Match, bool) {
	return f.one(name, entry.TypeAny, Reversed)
}

// FindAll returns every file and directory called name.
func (f *Finder) FindAll(name string) []Match {
	return f.all(name, entry.TypeAny, Forward)
}

// FindAllReversed is FindAll walking the search paths in reverse.
func (f *Finder) FindAllReversed(name string) []Match {
	return f.all(name, entry.TypeAny, Reversed)
}

func (f *Finder) FindFile(name string) (Match, bool) {
	return f.one(name, entry.TypeFile, Forward)
}

func (f *Finder) FindFileReversed(name string) (Match, bool) {
	return f.one(name, entry.TypeFile, Reversed)
}

func (f *Finder) FindDir(name string) (Match, bool) {
	return f.one(name, entry.TypeDir, Forward)
}

func (f *Finder) FindDirReversed(name string) (Match, bool) {
	return f.one(name, entry.TypeDir, Reversed)
}

func (f *Finder) FindAllFiles(name string) []Match {
	return f.all(name, entry.TypeFile, Forward)
}

func (f *Finder) FindAllFilesReversed(name string) []Match {
	return f.all(name, entry.TypeFile, Reversed)
}

func (f *Finder) FindAllDirs(name string) []Match {
	return f.all(name, entry.TypeDir, Forward)
}

func (f *Finder) FindAllDirsReversed(name string) []Match {
	return f.all(name, entry.TypeDir, Reversed)
}
