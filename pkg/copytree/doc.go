// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package copytree copies a directory tree with file copies running on a
// worker pool while the tree is still being walked.
//
// A run has two phases that overlap:
//
//	collection  walk the source, summing sizes and submitting one task per file
//	copy        rebase, mkdir, stream; one task per file on the Dispatcher
//
// The copy percent is only published once collection has finished, since the
// total is unknown before then. Copies finishing earlier report a warning
// instead. A full Dispatcher queue pauses the walk rather than failing it.
//
// Collect runs the same walk without copying and returns the accepted files.
//
// Example:
//
//	pool, _ := dispatch.New(ctx, dispatch.Options{Workers: 8})
//	tree, err := copytree.New(ctx, copytree.Options{
//		Source:      "/data/in",
//		Destination: "/data/out",
//		Dispatcher:  pool,
//	})
//	if err != nil {
//		return err
//	}
//	tree.AddCopyListener(bar)
//	submitted := tree.Copy(ctx)
//	written, err := tree.Wait(ctx)
package copytree
