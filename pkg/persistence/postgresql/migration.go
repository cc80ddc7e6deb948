package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE users (
				id VARCHAR(64) PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				role VARCHAR(32) NOT NULL
			);

			CREATE INDEX idx_users_tenant_role ON users(tenant_id, role);

			CREATE TABLE catalog_entries (
				id VARCHAR(64) PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL,
				subject VARCHAR(100),
				level VARCHAR(50),
				difficulty VARCHAR(20) NOT NULL
					CHECK (difficulty IN ('beginner', 'intermediate', 'advanced')),
				tags JSONB NOT NULL DEFAULT '[]',
				content JSONB,
				workflow_status VARCHAR(20) NOT NULL DEFAULT 'draft'
					CHECK (workflow_status IN ('draft', 'proposed', 'validated', 'published', 'rejected', 'archived')),
				current_version_id VARCHAR(64),
				created_by VARCHAR(64) NOT NULL,
				updated_by VARCHAR(64),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_catalog_entries_tenant_status ON catalog_entries(tenant_id, workflow_status);
			CREATE INDEX idx_catalog_entries_updated_at ON catalog_entries(updated_at);

			CREATE TABLE workflow_transitions (
				seq BIGSERIAL UNIQUE,
				id VARCHAR(64) PRIMARY KEY,
				catalog_entry_id VARCHAR(64) NOT NULL REFERENCES catalog_entries(id),
				user_id VARCHAR(64) NOT NULL,
				from_status VARCHAR(20) NOT NULL,
				to_status VARCHAR(20) NOT NULL,
				comment TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_transitions_entry ON workflow_transitions(catalog_entry_id, created_at DESC, seq DESC);
		`,
		2: `
			CREATE TABLE notifications (
				id VARCHAR(64) PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				user_id VARCHAR(64),
				user_role VARCHAR(32),
				type VARCHAR(64) NOT NULL,
				data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_user ON notifications(tenant_id, user_id);
			CREATE INDEX idx_notifications_role ON notifications(tenant_id, user_role);

			CREATE TABLE publications (
				id VARCHAR(64) PRIMARY KEY,
				tenant_id VARCHAR(64) NOT NULL,
				user_id VARCHAR(64) NOT NULL,
				catalog_entry_id VARCHAR(64) NOT NULL,
				publication_type VARCHAR(20) NOT NULL CHECK (publication_type IN ('catalog', 'assignment')),
				target_classes JSONB,
				target_students JSONB,
				status VARCHAR(20) NOT NULL
					CHECK (status IN ('pending', 'published', 'failed', 'acknowledged', 'rejected')),
				ergomate_theme_id VARCHAR(128),
				ergomate_assignment_id VARCHAR(128),
				error_message TEXT,
				attempts INT NOT NULL DEFAULT 0,
				ack_data JSONB,
				ack_received_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_publications_tenant_user ON publications(tenant_id, user_id);
			CREATE INDEX idx_publications_status ON publications(status, updated_at);
		`,
	}
}
