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

package client

import (
	"crypto/tls"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cloudwego/volt/pkg/common/hlog"
)

// certWatcher keeps a client certificate pair fresh on disk changes.
// A failed reload keeps the previous certificate in use.
type certWatcher struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newCertWatcher(certFile, keyFile string) (*certWatcher, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cw := &certWatcher{
		certFile: certFile,
		keyFile:  keyFile,
		cert:     &cert,
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	for _, f := range []string{certFile, keyFile} {
		if err := watcher.Add(f); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	go cw.run()
	return cw, nil
}

func (cw *certWatcher) getClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.cert, nil
}

func (cw *certWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cw.reload()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			hlog.SystemLogger().Errorf("certificate watcher: %v", err)
		case <-cw.done:
			return
		}
	}
}

func (cw *certWatcher) reload() {
	cert, err := tls.LoadX509KeyPair(cw.certFile, cw.keyFile)
	if err != nil {
		// Re-issue writes the two files one after another, so a transient
		// key mismatch here is expected. The next event retries.
		hlog.SystemLogger().Errorf("reload certificate %q/%q: %v", cw.certFile, cw.keyFile, err)
		return
	}
	cw.mu.Lock()
	cw.cert = &cert
	cw.mu.Unlock()
	hlog.SystemLogger().Infof("reloaded certificate %q", cw.certFile)
}

func (cw *certWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}
