// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory implementation of Client used by controller and
// observe-loop tests. It is intentionally simple: one map per entity kind,
// guarded by a single mutex, mirroring the fake clients used throughout
// gardener's and controller-runtime's own test suites.
type Fake struct {
	mu sync.Mutex

	clusters   map[string]string // name -> id
	projects   map[string]*Project
	namespaces map[string]map[string]*Namespace // clusterID -> name -> namespace
	members    map[string][]*Member             // projectID -> members
	principals map[string]string                // lowercased name -> id
	kubeconfig map[string]string                // clusterID -> kubeconfig

	// CreateNamespaceErr, when set, is returned by CreateNamespace for the
	// named namespace; used to exercise a failed namespace creation.
	CreateNamespaceErr map[string]error
}

// NewFake returns a ready-to-use Fake.
func NewFake() *Fake {
	return &Fake{
		clusters:   map[string]string{},
		projects:   map[string]*Project{},
		namespaces: map[string]map[string]*Namespace{},
		members:    map[string][]*Member{},
		principals: map[string]string{},
		kubeconfig: map[string]string{},
	}
}

// SeedCluster registers a cluster name -> id mapping.
func (f *Fake) SeedCluster(name, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters[name] = id
}

// SeedPrincipal registers a principal name -> id mapping (case-insensitive
// lookup).
func (f *Fake) SeedPrincipal(name, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.principals[strings.ToLower(name)] = id
}

// SeedProject injects a pre-existing platform project, as if created
// out-of-band, for take-over scenarios.
func (f *Fake) SeedProject(p *Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[p.ID] = p
}

// SeedNamespace injects a pre-existing platform namespace.
func (f *Fake) SeedNamespace(n *Namespace) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.namespaces[n.ClusterID] == nil {
		f.namespaces[n.ClusterID] = map[string]*Namespace{}
	}
	f.namespaces[n.ClusterID][strings.ToLower(n.Name)] = n
}

func (f *Fake) GetClusterIDByName(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clusters[name], nil
}

func (f *Fake) GetProjectByName(_ context.Context, clusterID, name string) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ClusterID == clusterID && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateProject(_ context.Context, clusterID, name, description string, annotations map[string]string) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("%s:p-%s", clusterID, uuid.NewString()[:8])
	merged := map[string]string{}
	for k, v := range annotations {
		merged[k] = v
	}
	p := &Project{
		ID:          id,
		ClusterID:   clusterID,
		Name:        name,
		Description: description,
		Annotations: merged,
	}
	f.projects[id] = p
	cp := *p
	return &cp, nil
}

func (f *Fake) DeleteProject(_ context.Context, projectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return false, nil
	}
	if !p.IsManagedByUs() {
		return false, nil
	}
	delete(f.projects, projectID)
	return true, nil
}

func (f *Fake) GetNamespace(_ context.Context, clusterID, name string) (*Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byName := f.namespaces[clusterID]
	if byName == nil {
		return nil, nil
	}
	ns, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	cp := *ns
	return &cp, nil
}

func (f *Fake) CreateNamespace(_ context.Context, projectID, name string) (*Namespace, error) {
	name = strings.ToLower(name)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.CreateNamespaceErr[name]; ok && err != nil {
		return nil, err
	}

	clusterID := strings.SplitN(projectID, ":", 2)[0]
	ns := &Namespace{
		Name:      name,
		ClusterID: clusterID,
		ProjectID: projectID,
		Labels:    map[string]string{ManagedByKey: ManagedByValue},
		Annotations: map[string]string{
			ManagedByKey: ManagedByValue,
		},
	}
	if f.namespaces[clusterID] == nil {
		f.namespaces[clusterID] = map[string]*Namespace{}
	}
	f.namespaces[clusterID][name] = ns
	cp := *ns
	return &cp, nil
}

func (f *Fake) UpdateNamespaceProject(_ context.Context, clusterID, name, newProjectID string) error {
	name = strings.ToLower(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	byName := f.namespaces[clusterID]
	if byName == nil || byName[name] == nil {
		return fmt.Errorf("namespace %q not found in cluster %q", name, clusterID)
	}
	ns := byName[name]
	ns.ProjectID = newProjectID
	if ns.Labels == nil {
		ns.Labels = map[string]string{}
	}
	if _, ok := ns.Labels[ManagedByKey]; !ok {
		ns.Labels[ManagedByKey] = ManagedByValue
	}
	return nil
}

func (f *Fake) RemoveNamespaceFromProject(_ context.Context, clusterID, name string) (bool, error) {
	name = strings.ToLower(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	byName := f.namespaces[clusterID]
	if byName == nil || byName[name] == nil {
		return false, nil
	}
	ns := byName[name]
	if !ns.IsManagedByUs() {
		return false, nil
	}
	ns.ProjectID = ""
	return true, nil
}

func (f *Fake) DeleteNamespace(_ context.Context, clusterID, name string) (bool, error) {
	name = strings.ToLower(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	byName := f.namespaces[clusterID]
	if byName == nil || byName[name] == nil {
		return false, nil
	}
	ns := byName[name]
	if !ns.IsManagedByUs() {
		return false, nil
	}
	delete(byName, name)
	return true, nil
}

func (f *Fake) GetProjectNamespaces(_ context.Context, projectID string) ([]Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clusterID := strings.SplitN(projectID, ":", 2)[0]
	var out []Namespace
	for _, ns := range f.namespaces[clusterID] {
		if ns.ProjectID == projectID {
			out = append(out, *ns)
		}
	}
	return out, nil
}

func (f *Fake) GetProjectMembers(_ context.Context, projectID string) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Member
	for _, m := range f.members[projectID] {
		out = append(out, *m)
	}
	return out, nil
}

func (f *Fake) CreateProjectMember(_ context.Context, projectID, principalID string, role string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &Member{
		ID:             fmt.Sprintf("member-%s", uuid.NewString()[:8]),
		ProjectID:      projectID,
		RoleTemplateID: role,
	}
	if strings.Contains(principalID, "user") {
		m.UserPrincipalID = principalID
	} else {
		m.GroupPrincipalID = principalID
	}
	f.members[projectID] = append(f.members[projectID], m)
	cp := *m
	return &cp, nil
}

func (f *Fake) GetPrincipalIDByName(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.principals[strings.ToLower(name)], nil
}

func (f *Fake) GetClusterKubeconfig(_ context.Context, clusterID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kubeconfig[clusterID], nil
}

var _ Client = (*Fake)(nil)
