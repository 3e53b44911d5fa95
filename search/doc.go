// Copyright 2025 Poiesic Systems
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


// Package search filters and ranks campus utilities.
//
// Search is a pure function of its inputs. It combines:
//   - Category scoping: selected categories restrict the candidate set
//   - Field relevance: exact, prefix, word-prefix and substring matches on
//     name, building, type and floor, weighted by field
//   - Multi-term matching: queries whose terms are spread across fields
//
// With no category selected and no query the result is empty. With categories
// selected and no query the result is a plain category filter in input order.
// Otherwise candidates are scored and returned by descending relevance, with
// ties kept in input order.
//
// The Searcher type wraps Search with a repository so callers can search the
// stored collection directly.
package search
