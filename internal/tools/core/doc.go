// Package core provides the filesystem tools.
//
// Tools:
//   - get_files_info: list a directory
//   - get_file_content: read a file whole, by character budget, by line range or as a smart excerpt
//   - search_file_content: find a substring and return the surrounding lines
//   - write_file: overwrite a file
//   - append_file: append to a file
//   - replace_lines: replace an inclusive line range
//
// Every read reports exactly how much was left out when the model-facing
// excerpt is smaller than the file.
package core
