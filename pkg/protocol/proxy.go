/*
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

// Proxy returns the proxy URI for the given request, or nil for a direct
// connection. Returning an error aborts the request.
type Proxy func(*Request) (*URI, error)

// ProxyURI returns a Proxy that routes every request through fixedURI.
func ProxyURI(fixedURI *URI) Proxy {
	return func(*Request) (*URI, error) {
		return fixedURI, nil
	}
}
