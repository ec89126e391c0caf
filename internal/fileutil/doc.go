// Package fileutil provides directory scanning with extension, glob and
// depth filtering.
//
// ScanDirectory walks a directory and returns sorted absolute paths of the
// files that pass every filter. Hidden directories (leading ".") and any
// directory listed in ScanOptions.ExcludeDirs are skipped. Non-fatal errors,
// such as an unreadable subdirectory, are collected in ScanResult.Errors and
// scanning continues.
//
// FindWorkGraphFiles resolves a mix of files and directories into the list of
// WorkGraph documents (.json, .yaml, .yml) they name:
//
//	files, err := fileutil.FindWorkGraphFiles([]string{"plans/", "extra.json"})
package fileutil
